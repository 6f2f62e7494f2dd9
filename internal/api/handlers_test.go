package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-dmx/internal/bridges/sacn"
	"github.com/nerrad567/gray-logic-dmx/internal/diagnostics"
	"github.com/nerrad567/gray-logic-dmx/internal/dmx"
	"github.com/nerrad567/gray-logic-dmx/internal/engine"
	"github.com/nerrad567/gray-logic-dmx/internal/eventloop"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-dmx/internal/show"
)

// fakeErrorStore records the limit it was asked for.
type fakeErrorStore struct {
	entries   []diagnostics.NetworkError
	err       error
	lastLimit int
}

func (f *fakeErrorStore) Recent(_ context.Context, limit int) ([]diagnostics.NetworkError, error) {
	f.lastLimit = limit
	return f.entries, f.err
}

const testShow = `{
	"name": "chase",
	"duration": 2,
	"frames": [
		{"timestamp": 0, "universeValues": {"1": [255, 128]}},
		{"timestamp": 33, "universeValues": {"1": [10, 20]}}
	]
}`

// waitConnected polls until the relay link reports up.
func waitConnected(t *testing.T, srv *Server) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, err := srv.engine.NetworkStatus(context.Background())
		if err == nil && st.Connected {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("relay link never came up")
}

func channelValue(t *testing.T, h http.Handler, universe, channel int) int {
	t.Helper()
	w := do(t, h, http.MethodGet, fmt.Sprintf("/api/v1/universes/%d/channels/%d", universe, channel), "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET channel status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[channelResponse](t, w).Value
}

// ─── Show Handler Tests ────────────────────────────────────────────

func TestShow_LoadAndControl(t *testing.T) {
	srv := testServer(t, testOptions{})
	router := srv.buildRouter()

	w := do(t, router, http.MethodPut, "/api/v1/show", testShow)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /show status = %d, body = %s", w.Code, w.Body.String())
	}
	status := decode[show.Status](t, w)
	if status.State != show.StateLoaded {
		t.Errorf("State = %q, want loaded", status.State)
	}
	if status.TotalFrames != 2 {
		t.Errorf("TotalFrames = %d, want 2", status.TotalFrames)
	}
	if status.SequenceID == "" {
		t.Error("SequenceID not assigned")
	}

	w = do(t, router, http.MethodPost, "/api/v1/show/seek", `{"time": 0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("seek status = %d", w.Code)
	}
	if got := channelValue(t, router, 1, 0); got != 255 {
		t.Errorf("channel 1/0 after seek = %d, want 255", got)
	}

	steps := []struct {
		path string
		body string
		want show.State
	}{
		{"/api/v1/show/play", "", show.StatePlaying},
		{"/api/v1/show/pause", "", show.StatePaused},
		{"/api/v1/show/stop", "", show.StateIdle},
	}
	for _, step := range steps {
		w := do(t, router, http.MethodPost, step.path, step.body)
		if w.Code != http.StatusOK {
			t.Fatalf("POST %s status = %d", step.path, w.Code)
		}
		if got := decode[show.Status](t, w).State; got != step.want {
			t.Errorf("after %s state = %q, want %q", step.path, got, step.want)
		}
	}

	w = do(t, router, http.MethodPut, "/api/v1/show/loop", `{"loop": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("loop status = %d", w.Code)
	}
	if !decode[show.Status](t, w).Loop {
		t.Error("Loop = false after PUT /show/loop true")
	}

	w = do(t, router, http.MethodGet, "/api/v1/show", "")
	if got := decode[show.Status](t, w); got.Name != "chase" || !got.Loop {
		t.Errorf("GET /show = %+v", got)
	}
}

func TestShow_Validation(t *testing.T) {
	srv := testServer(t, testOptions{})
	router := srv.buildRouter()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"invalid JSON", http.MethodPut, "/api/v1/show", `{`, http.StatusBadRequest},
		{"unknown field", http.MethodPut, "/api/v1/show", `{"nope": 1}`, http.StatusBadRequest},
		{"bad universe", http.MethodPut, "/api/v1/show", `{"duration":1,"frames":[{"timestamp":0,"universeValues":{"70":[1]}}]}`, http.StatusBadRequest},
		{"frames out of order", http.MethodPut, "/api/v1/show", `{"duration":1,"frames":[{"timestamp":50},{"timestamp":10}]}`, http.StatusBadRequest},
		{"negative duration", http.MethodPut, "/api/v1/show", `{"duration":-1}`, http.StatusBadRequest},
		{"seek without time", http.MethodPost, "/api/v1/show/seek", `{}`, http.StatusBadRequest},
		{"loop without value", http.MethodPut, "/api/v1/show/loop", `{}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}

	// Nothing was loaded by the rejected requests.
	w := do(t, router, http.MethodGet, "/api/v1/show", "")
	if got := decode[show.Status](t, w).State; got != show.StateIdle {
		t.Errorf("State = %q, want idle", got)
	}
}

// ─── Universe Handler Tests ────────────────────────────────────────

func TestUniverse_Get(t *testing.T) {
	srv := testServer(t, testOptions{})
	router := srv.buildRouter()

	w := do(t, router, http.MethodGet, "/api/v1/universes/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	u := decode[dmx.Universe](t, w)
	if u.ID != 1 || len(u.Slots) != dmx.SlotCount {
		t.Errorf("universe = id %d, %d slots", u.ID, len(u.Slots))
	}
	if u.Priority != dmx.DefaultPriority {
		t.Errorf("Priority = %d, want %d", u.Priority, dmx.DefaultPriority)
	}
}

func TestUniverse_Addressing(t *testing.T) {
	srv := testServer(t, testOptions{})
	router := srv.buildRouter()

	tests := []struct {
		name string
		path string
		want int
	}{
		{"universe 0", "/api/v1/universes/0", http.StatusNotFound},
		{"universe 65", "/api/v1/universes/65", http.StatusNotFound},
		{"non-numeric universe", "/api/v1/universes/abc", http.StatusNotFound},
		{"channel 512", "/api/v1/universes/1/channels/512", http.StatusBadRequest},
		{"negative channel", "/api/v1/universes/1/channels/-1", http.StatusBadRequest},
		{"non-numeric channel", "/api/v1/universes/1/channels/x", http.StatusBadRequest},
		{"last slot", "/api/v1/universes/64/channels/511", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodGet, tt.path, "")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestUniverse_SetChannel(t *testing.T) {
	srv := testServer(t, testOptions{})
	router := srv.buildRouter()

	tests := []struct {
		name  string
		body  string
		code  int
		value int
	}{
		{"in range", `{"value": 100}`, http.StatusOK, 100},
		{"clamped high", `{"value": 300}`, http.StatusOK, 255},
		{"clamped low", `{"value": -5}`, http.StatusOK, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPut, "/api/v1/universes/2/channels/7", tt.body)
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d", w.Code, tt.code)
			}
			if got := decode[channelResponse](t, w).Value; got != tt.value {
				t.Errorf("response value = %d, want %d", got, tt.value)
			}
			if got := channelValue(t, router, 2, 7); got != tt.value {
				t.Errorf("stored value = %d, want %d", got, tt.value)
			}
		})
	}

	w := do(t, router, http.MethodPut, "/api/v1/universes/2/channels/7", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing value status = %d, want 400", w.Code)
	}
}

func TestUniverse_SetChannels(t *testing.T) {
	srv := testServer(t, testOptions{})
	router := srv.buildRouter()

	w := do(t, router, http.MethodPut, "/api/v1/universes/3/channels", `{"start": 510, "values": [1, 2, 3]}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := channelValue(t, router, 3, 510); got != 1 {
		t.Errorf("channel 510 = %d, want 1", got)
	}
	if got := channelValue(t, router, 3, 511); got != 2 {
		t.Errorf("channel 511 = %d, want 2", got)
	}

	bad := []string{
		`{"start": 512, "values": [1]}`,
		`{"start": -1, "values": [1]}`,
		`{"start": 0, "values": []}`,
		`{"start": 0}`,
	}
	for _, body := range bad {
		w := do(t, router, http.MethodPut, "/api/v1/universes/3/channels", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestUniverse_Clear(t *testing.T) {
	srv := testServer(t, testOptions{})
	router := srv.buildRouter()

	do(t, router, http.MethodPut, "/api/v1/universes/4/channels/0", `{"value": 50}`)
	do(t, router, http.MethodPut, "/api/v1/universes/5/channels/0", `{"value": 60}`)

	if w := do(t, router, http.MethodDelete, "/api/v1/universes/4", ""); w.Code != http.StatusNoContent {
		t.Fatalf("DELETE universe status = %d", w.Code)
	}
	if got := channelValue(t, router, 4, 0); got != 0 {
		t.Errorf("universe 4 after clear = %d, want 0", got)
	}
	if got := channelValue(t, router, 5, 0); got != 60 {
		t.Errorf("universe 5 touched by single clear: %d", got)
	}

	if w := do(t, router, http.MethodDelete, "/api/v1/universes", ""); w.Code != http.StatusNoContent {
		t.Fatalf("DELETE all status = %d", w.Code)
	}
	if got := channelValue(t, router, 5, 0); got != 0 {
		t.Errorf("universe 5 after clear all = %d, want 0", got)
	}
}

// ─── Network Handler Tests ─────────────────────────────────────────

func TestNetwork_Disabled(t *testing.T) {
	srv := testServer(t, testOptions{})
	router := srv.buildRouter()

	w := do(t, router, http.MethodGet, "/api/v1/network/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if decode[sacn.Status](t, w).Connected {
		t.Error("Connected = true without a transport")
	}

	if w := do(t, router, http.MethodGet, "/api/v1/network/multicast", ""); w.Code != http.StatusConflict {
		t.Errorf("GET multicast status = %d, want 409", w.Code)
	}
	if w := do(t, router, http.MethodPatch, "/api/v1/network/multicast", `{"port": 6454}`); w.Code != http.StatusConflict {
		t.Errorf("PATCH multicast status = %d, want 409", w.Code)
	}

	w = do(t, router, http.MethodPost, "/api/v1/network/send/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("send status = %d", w.Code)
	}
	if decode[map[string]bool](t, w)["sent"] {
		t.Error("sent = true without a transport")
	}
}

func TestNetwork_Multicast(t *testing.T) {
	transport := &fakeTransport{}
	srv := testServer(t, testOptions{transport: transport})
	router := srv.buildRouter()
	waitConnected(t, srv)

	w := do(t, router, http.MethodGet, "/api/v1/network/multicast", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d", w.Code)
	}
	if got := decode[sacn.MulticastConfig](t, w); got != sacn.DefaultMulticastConfig() {
		t.Errorf("initial config = %+v", got)
	}

	w = do(t, router, http.MethodPatch, "/api/v1/network/multicast", `{"port": 6454, "ttl": 16}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PATCH status = %d, body = %s", w.Code, w.Body.String())
	}
	got := decode[sacn.MulticastConfig](t, w)
	if got.Port != 6454 || got.TTL != 16 || got.Address != "239.255.0.1" {
		t.Errorf("patched config = %+v", got)
	}

	bad := []string{
		`{}`,
		`{"port": 0}`,
		`{"port": 70000}`,
		`{"ttl": 0}`,
		`{"address": "10.0.0.1"}`,
		`{"sourceAddress": "not-an-ip"}`,
	}
	for _, body := range bad {
		w := do(t, router, http.MethodPatch, "/api/v1/network/multicast", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestNetwork_Send(t *testing.T) {
	transport := &fakeTransport{}
	srv := testServer(t, testOptions{transport: transport})
	router := srv.buildRouter()
	waitConnected(t, srv)

	topic := mqtt.Topics{}.Send(1)

	w := do(t, router, http.MethodPost, "/api/v1/network/send/1", `{"slots": [1, 2, 3]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !decode[map[string]bool](t, w)["sent"] {
		t.Error("sent = false with the link up")
	}

	w = do(t, router, http.MethodPost, "/api/v1/network/send/1", "")
	if w.Code != http.StatusOK || !decode[map[string]bool](t, w)["sent"] {
		t.Errorf("send without body: status %d, body %s", w.Code, w.Body.String())
	}
	if got := transport.publishCount(topic); got != 2 {
		t.Errorf("publishes on %s = %d, want 2", topic, got)
	}

	tooMany := fmt.Sprintf(`{"slots": [%s0]}`, repeat("0,", dmx.SlotCount))
	if w := do(t, router, http.MethodPost, "/api/v1/network/send/1", tooMany); w.Code != http.StatusBadRequest {
		t.Errorf("513 slots status = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/api/v1/network/send/65", ""); w.Code != http.StatusNotFound {
		t.Errorf("universe 65 status = %d, want 404", w.Code)
	}
}

func repeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for range n {
		out = append(out, s...)
	}
	return string(out)
}

func TestNetwork_Errors(t *testing.T) {
	srv := testServer(t, testOptions{})
	router := srv.buildRouter()

	w := do(t, router, http.MethodPost, "/api/v1/network/errors", `{"type": "packet", "message": "bad frame", "universe": 3}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, body = %s", w.Code, w.Body.String())
	}
	id := decode[map[string]string](t, w)["id"]
	if id == "" {
		t.Error("no id returned")
	}

	w = do(t, router, http.MethodGet, "/api/v1/network/errors", "")
	list := decode[struct {
		Errors []diagnostics.NetworkError `json:"errors"`
		Count  int                        `json:"count"`
	}](t, w)
	if list.Count != 1 || list.Errors[0].ID != id || list.Errors[0].Message != "bad frame" {
		t.Errorf("history = %+v", list)
	}

	w = do(t, router, http.MethodGet, "/api/v1/network/stats", "")
	stats := decode[diagnostics.NetworkStats](t, w)
	if len(stats.Errors) != 1 || stats.Errors[0] != "bad frame" {
		t.Errorf("stats.Errors = %v", stats.Errors)
	}

	bad := []string{
		`{"type": "nope", "message": "x"}`,
		`{"type": "packet"}`,
		`{"type": "universe", "message": "x", "universe": 99}`,
	}
	for _, body := range bad {
		w := do(t, router, http.MethodPost, "/api/v1/network/errors", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, w.Code)
		}
	}

	if w := do(t, router, http.MethodDelete, "/api/v1/network/errors", ""); w.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/api/v1/network/errors", "")
	if got := decode[map[string]any](t, w)["count"]; got != float64(0) {
		t.Errorf("count after clear = %v, want 0", got)
	}
}

func TestNetwork_ErrorLog(t *testing.T) {
	store := &fakeErrorStore{entries: []diagnostics.NetworkError{
		{ID: "a", Type: diagnostics.ErrorConnection, Message: "relay down"},
	}}
	srv := testServer(t, testOptions{errorLog: store})
	router := srv.buildRouter()

	tests := []struct {
		name      string
		query     string
		code      int
		wantLimit int
	}{
		{"default limit", "?source=log", http.StatusOK, defaultErrorLimit},
		{"explicit limit", "?source=log&limit=5", http.StatusOK, 5},
		{"capped limit", "?source=log&limit=9999", http.StatusOK, maxErrorLimit},
		{"bad limit", "?source=log&limit=abc", http.StatusBadRequest, 0},
		{"zero limit", "?source=log&limit=0", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.lastLimit = 0
			w := do(t, router, http.MethodGet, "/api/v1/network/errors"+tt.query, "")
			if w.Code != tt.code {
				t.Fatalf("status = %d, want %d", w.Code, tt.code)
			}
			if store.lastLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", store.lastLimit, tt.wantLimit)
			}
		})
	}

	store.err = errors.New("disk gone")
	if w := do(t, router, http.MethodGet, "/api/v1/network/errors?source=log", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("store failure status = %d, want 500", w.Code)
	}
}

func TestNetwork_ErrorLogDisabled(t *testing.T) {
	srv := testServer(t, testOptions{})
	w := do(t, srv.buildRouter(), http.MethodGet, "/api/v1/network/errors?source=log", "")

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

// ─── Error Mapping Tests ───────────────────────────────────────────

func TestWriteEngineError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"network disabled", engine.ErrNetworkDisabled, http.StatusConflict},
		{"loop stopped", eventloop.ErrStopped, http.StatusServiceUnavailable},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable},
		{"timeout", fmt.Errorf("call: %w", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeEngineError(w, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestEngineStopped(t *testing.T) {
	srv := testServer(t, testOptions{})
	if err := srv.engine.Close(); err != nil {
		t.Fatalf("engine Close() error: %v", err)
	}

	w := do(t, srv.buildRouter(), http.MethodPost, "/api/v1/show/play", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 after engine close", w.Code)
	}
}
