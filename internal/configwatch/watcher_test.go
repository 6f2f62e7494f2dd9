package configwatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-dmx/internal/bridges/sacn"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/config"
)

// recordingApplier captures every patch it receives.
type recordingApplier struct {
	mu      sync.Mutex
	patches []sacn.MulticastPatch
	err     error
	applied chan struct{}
}

func newRecordingApplier() *recordingApplier {
	return &recordingApplier{applied: make(chan struct{}, 10)}
}

func (r *recordingApplier) SetMulticastConfig(_ context.Context, p sacn.MulticastPatch) (sacn.MulticastConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return sacn.MulticastConfig{}, r.err
	}
	r.patches = append(r.patches, p)
	r.applied <- struct{}{}
	return p.Apply(sacn.DefaultMulticastConfig()), nil
}

func (r *recordingApplier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.patches)
}

var initial = config.MulticastConfig{
	Address:       "239.255.0.1",
	Port:          5568,
	TTL:           128,
	SourceAddress: "0.0.0.0",
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func configWithPort(port string) string {
	return "network:\n  multicast:\n    address: \"239.255.0.1\"\n    port: " + port +
		"\n    ttl: 128\n    source_address: \"0.0.0.0\"\n"
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.MulticastConfig)
		check  func(sacn.MulticastPatch) bool
	}{
		{"unchanged", func(*config.MulticastConfig) {}, sacn.MulticastPatch.Empty},
		{"port only", func(c *config.MulticastConfig) { c.Port = 6454 }, func(p sacn.MulticastPatch) bool {
			return p.Port != nil && *p.Port == 6454 && p.Address == nil && p.TTL == nil && p.SourceAddress == nil
		}},
		{"address and ttl", func(c *config.MulticastConfig) { c.Address = "239.1.1.1"; c.TTL = 4 }, func(p sacn.MulticastPatch) bool {
			return p.Address != nil && *p.Address == "239.1.1.1" && p.TTL != nil && *p.TTL == 4 && p.Port == nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := initial
			tt.mutate(&next)
			if p := diff(initial, next); !tt.check(p) {
				t.Errorf("diff() = %+v", p)
			}
		})
	}
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	applier := newRecordingApplier()
	w := New(path, initial, applier, nil)
	ctx := context.Background()

	writeFile(t, path, configWithPort("5568"))
	if err := w.Reload(ctx); err != nil {
		t.Fatalf("Reload() unchanged = %v", err)
	}
	if applier.count() != 0 {
		t.Errorf("patches after unchanged reload = %d, want 0", applier.count())
	}

	writeFile(t, path, configWithPort("6454"))
	if err := w.Reload(ctx); err != nil {
		t.Fatalf("Reload() = %v", err)
	}
	if applier.count() != 1 || *applier.patches[0].Port != 6454 {
		t.Fatalf("patches = %+v", applier.patches)
	}

	// The same file again is now a no-op.
	if err := w.Reload(ctx); err != nil {
		t.Fatalf("Reload() repeat = %v", err)
	}
	if applier.count() != 1 {
		t.Errorf("patches after repeat = %d, want 1", applier.count())
	}
}

func TestReload_Rejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	applier := newRecordingApplier()
	w := New(path, initial, applier, nil)

	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "network: [\n"},
		{"invalid port", configWithPort("0")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeFile(t, path, tt.content)
			if err := w.Reload(context.Background()); err == nil {
				t.Error("Reload() = nil, want error")
			}
		})
	}
	if applier.count() != 0 {
		t.Errorf("patches = %d, want 0", applier.count())
	}
}

func TestReload_ApplierFailureKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	applier := newRecordingApplier()
	applier.err = errors.New("engine: network disabled")
	w := New(path, initial, applier, nil)

	writeFile(t, path, configWithPort("6454"))
	if err := w.Reload(context.Background()); err == nil {
		t.Fatal("Reload() = nil, want applier error")
	}

	// Once the applier recovers the same edit is retried.
	applier.err = nil
	if err := w.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() = %v", err)
	}
	if applier.count() != 1 {
		t.Errorf("patches = %d, want 1", applier.count())
	}
}

func TestRun_WatchesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, configWithPort("5568"))

	applier := newRecordingApplier()
	w := New(path, initial, applier, nil)
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	writeFile(t, filepath.Join(dir, "other.yaml"), configWithPort("1"))
	writeFile(t, path, configWithPort("6454"))

	select {
	case <-applier.applied:
	case <-time.After(2 * time.Second):
		t.Fatal("edit was not applied")
	}
	if got := *applier.patches[0].Port; got != 6454 {
		t.Errorf("patched port = %d, want 6454", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}
}

func TestRun_MissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing", "config.yaml"), initial, newRecordingApplier(), nil)
	if err := w.Run(context.Background()); err == nil {
		t.Error("Run() = nil for a missing directory")
	}
}
