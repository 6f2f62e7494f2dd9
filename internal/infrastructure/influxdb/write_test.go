package influxdb

import (
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-dmx/internal/diagnostics"
)

type fakeWriter struct {
	points  []*write.Point
	flushes int
}

func (f *fakeWriter) WritePoint(p *write.Point) { f.points = append(f.points, p) }
func (f *fakeWriter) Flush()                    { f.flushes++ }

func newTestClient() (*Client, *fakeWriter) {
	w := &fakeWriter{}
	return &Client{writer: w, site: "studio", connected: true}, w
}

func tagsOf(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func fieldsOf(p *write.Point) map[string]any {
	out := make(map[string]any)
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func TestWriteStats(t *testing.T) {
	c, w := newTestClient()
	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	c.WriteStats(diagnostics.NetworkStats{
		Connected:        true,
		Latency:          3.5,
		PacketsPerSecond: 74,
		UniverseStats: map[int]diagnostics.UniverseStats{
			1: {Active: true, PacketsPerSecond: 44},
			2: {Active: true, PacketsPerSecond: 30, Errors: 2},
		},
	}, at)

	if len(w.points) != 3 {
		t.Fatalf("points = %d, want 3", len(w.points))
	}

	link := w.points[0]
	if link.Name() != MeasurementLink || !link.Time().Equal(at) {
		t.Errorf("link point = %s at %v", link.Name(), link.Time())
	}
	if tags := tagsOf(link); tags["site"] != "studio" {
		t.Errorf("link tags = %v", tags)
	}
	fields := fieldsOf(link)
	if fields["connected"] != true || fields["latency_ms"] != 3.5 || fields["packets_per_second"] != 74.0 {
		t.Errorf("link fields = %v", fields)
	}
	if fields["active_universes"] != int64(2) {
		t.Errorf("active_universes = %v (%T), want 2", fields["active_universes"], fields["active_universes"])
	}

	byUniverse := make(map[string]*write.Point)
	for _, p := range w.points[1:] {
		if p.Name() != MeasurementUniverse {
			t.Fatalf("measurement = %q, want %q", p.Name(), MeasurementUniverse)
		}
		byUniverse[tagsOf(p)["universe"]] = p
	}
	u2, ok := byUniverse["2"]
	if !ok {
		t.Fatal("no point for universe 2")
	}
	if f := fieldsOf(u2); f["packets_per_second"] != 30.0 || f["errors"] != int64(2) || f["active"] != true {
		t.Errorf("universe 2 fields = %v", f)
	}
}

func TestWriteError(t *testing.T) {
	c, w := newTestClient()
	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		err          diagnostics.NetworkError
		wantUniverse string
	}{
		{
			name:         "with universe",
			err:          diagnostics.NetworkError{ID: "a", Timestamp: at, Type: diagnostics.ErrorUniverse, Message: "data for unknown universe 70", Universe: diagnostics.UniverseRef(70)},
			wantUniverse: "70",
		},
		{
			name: "link error",
			err:  diagnostics.NetworkError{ID: "b", Timestamp: at, Type: diagnostics.ErrorConnection, Message: "relay connection lost"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w.points = nil
			c.WriteError(tt.err)

			if len(w.points) != 1 {
				t.Fatalf("points = %d, want 1", len(w.points))
			}
			p := w.points[0]
			if p.Name() != MeasurementError || !p.Time().Equal(at) {
				t.Errorf("point = %s at %v", p.Name(), p.Time())
			}
			tags := tagsOf(p)
			if tags["type"] != string(tt.err.Type) || tags["universe"] != tt.wantUniverse {
				t.Errorf("tags = %v", tags)
			}
			if f := fieldsOf(p); f["message"] != tt.err.Message || f["id"] != tt.err.ID {
				t.Errorf("fields = %v", f)
			}
		})
	}
}

func TestWritesSkippedWhenClosed(t *testing.T) {
	c, w := newTestClient()

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if w.flushes != 1 {
		t.Errorf("flushes on Close = %d, want 1", w.flushes)
	}

	c.WriteStats(diagnostics.NetworkStats{}, time.Now())
	c.WriteError(diagnostics.NetworkError{Type: diagnostics.ErrorPacket})
	c.Flush()

	if len(w.points) != 0 || w.flushes != 1 {
		t.Errorf("points = %d flushes = %d after Close", len(w.points), w.flushes)
	}
}

func TestHealthCheckWithoutServer(t *testing.T) {
	c, _ := newTestClient()
	if err := c.HealthCheck(t.Context()); err != ErrNotConnected {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}
