package configwatch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nerrad567/gray-logic-dmx/internal/bridges/sacn"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/config"
)

// DefaultDebounce coalesces the burst of events an editor produces on save.
const DefaultDebounce = 250 * time.Millisecond

// Applier receives multicast changes. *engine.Engine satisfies it.
type Applier interface {
	SetMulticastConfig(ctx context.Context, patch sacn.MulticastPatch) (sacn.MulticastConfig, error)
}

// Logger defines the logging interface used by the watcher.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Watcher pushes multicast edits from the config file to the relay.
//
// It watches the file's directory rather than the file, so editors that
// save by renaming a temporary file are still seen.
type Watcher struct {
	path     string
	applier  Applier
	logger   Logger
	delay    time.Duration
	reloads  chan struct{}
	mu       sync.Mutex
	debounce *time.Timer
	current  config.MulticastConfig
}

// New creates a watcher for path. initial is the multicast block the
// engine was started with.
func New(path string, initial config.MulticastConfig, applier Applier, logger Logger) *Watcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Watcher{
		path:    path,
		applier: applier,
		logger:  logger,
		delay:   DefaultDebounce,
		reloads: make(chan struct{}, 1),
		current: initial,
	}
}

// SetDebounce overrides DefaultDebounce. Call before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.delay = d
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.logger.Info("watching config for multicast changes", "path", w.path)

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			w.stopDebounce()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-w.reloads:
			if err := w.Reload(ctx); err != nil {
				w.logger.Warn("config reload skipped", "error", err)
			}
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.delay, func() {
		select {
		case w.reloads <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopDebounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
}

// Reload re-reads the file and applies any multicast change. A file that
// does not parse or carries invalid multicast values is ignored and the
// relay keeps its current settings.
func (w *Watcher) Reload(ctx context.Context) error {
	cfg, err := config.Reread(w.path)
	if err != nil {
		return err
	}
	next := cfg.Network.Multicast
	if err := next.Validate(); err != nil {
		return err
	}

	patch := diff(w.current, next)
	if patch.Empty() {
		return nil
	}

	applied, err := w.applier.SetMulticastConfig(ctx, patch)
	if err != nil {
		return fmt.Errorf("applying multicast config: %w", err)
	}
	w.current = next
	w.logger.Info("multicast config reloaded",
		"address", applied.Address,
		"port", applied.Port,
		"ttl", applied.TTL,
		"source_address", applied.SourceAddress,
	)
	return nil
}

// diff returns a patch carrying only the fields that changed.
func diff(prev, next config.MulticastConfig) sacn.MulticastPatch {
	var p sacn.MulticastPatch
	if next.Address != prev.Address {
		p.Address = &next.Address
	}
	if next.Port != prev.Port {
		p.Port = &next.Port
	}
	if next.TTL != prev.TTL {
		p.TTL = &next.TTL
	}
	if next.SourceAddress != prev.SourceAddress {
		p.SourceAddress = &next.SourceAddress
	}
	return p
}
