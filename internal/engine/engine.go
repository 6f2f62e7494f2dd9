package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-dmx/internal/bridges/sacn"
	"github.com/nerrad567/gray-logic-dmx/internal/diagnostics"
	"github.com/nerrad567/gray-logic-dmx/internal/dmx"
	"github.com/nerrad567/gray-logic-dmx/internal/event"
	"github.com/nerrad567/gray-logic-dmx/internal/eventloop"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dmx/internal/show"
)

// Logger defines the logging interface used by the engine and handed down
// to its components. *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds everything needed to assemble an engine.
type Options struct {
	// Transport is the relay link. Nil runs the engine without network
	// ingestion; network operations then return ErrNetworkDisabled.
	Transport sacn.Transport

	// Logger is optional.
	Logger Logger

	// Version is reported in adapter health messages.
	Version string

	Playback    config.PlaybackConfig
	Diagnostics config.DiagnosticsConfig
	Network     config.NetworkConfig

	// StatsSinks and ErrorSinks are registered with the diagnostics
	// aggregator (metrics, InfluxDB, the SQLite error log).
	StatsSinks []diagnostics.StatsSink
	ErrorSinks []diagnostics.ErrorSink
}

// Engine is the lighting core: channel table, show scheduler, relay
// adapter, and link diagnostics, all owned by one event loop.
//
// Every exported method is safe for concurrent use. Each one is marshalled
// onto the loop and waits for the result, so callers never see a
// half-applied update.
type Engine struct {
	loop    *eventloop.Loop
	bus     *event.Bus
	store   *dmx.Store
	sched   *show.Scheduler
	diag    *diagnostics.Aggregator
	adapter *sacn.Adapter
	logger  Logger

	autoplay *show.Sequence
	play     bool

	started  atomic.Bool
	finished chan struct{}
}

// New assembles an engine. Nothing runs until Run is called.
//
// Parameters:
//   - opts: Components and configuration sections
//
// Returns:
//   - *Engine: Ready to run
//   - error: If the configured show file cannot be loaded or the adapter
//     cannot be built
func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	loop := eventloop.New(logger)
	clock := loop.Clock()

	bus := event.NewBus()
	bus.SetLogger(logger)

	store := dmx.NewStore(bus)

	sched := show.NewScheduler(store, bus, clock)
	sched.SetLogger(logger)
	if opts.Playback.Loop {
		sched.SetLoop(true)
	}

	diag := diagnostics.NewAggregator(bus, clock, diagnostics.Options{
		TickInterval: opts.Diagnostics.TickPeriod(),
		HistoryLimit: opts.Diagnostics.HistoryLimit,
	})
	for _, s := range opts.StatsSinks {
		diag.AddStatsSink(s)
	}
	for _, s := range opts.ErrorSinks {
		diag.AddErrorSink(s)
	}

	e := &Engine{
		loop:     loop,
		bus:      bus,
		store:    store,
		sched:    sched,
		diag:     diag,
		logger:   logger,
		finished: make(chan struct{}),
	}

	if opts.Transport != nil {
		adapter, err := sacn.NewAdapter(adapterOptions(opts, store, diag, loop, logger))
		if err != nil {
			return nil, fmt.Errorf("creating sacn adapter: %w", err)
		}
		e.adapter = adapter
	}

	if path := opts.Playback.ShowFile; path != "" {
		seq, err := show.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading show %s: %w", path, err)
		}
		e.autoplay = &seq
		e.play = opts.Playback.Autoplay
	}

	// Queued now so it runs before any call made between New and Run.
	loop.Post(e.start)

	return e, nil
}

func adapterOptions(opts Options, store *dmx.Store, diag *diagnostics.Aggregator, loop *eventloop.Loop, logger Logger) sacn.Options {
	n := opts.Network

	ping := time.Duration(n.PingInterval) * time.Second
	if n.PingInterval <= 0 {
		ping = -1
	}

	return sacn.Options{
		Transport:         opts.Transport,
		Store:             store,
		Diagnostics:       diag,
		Clock:             loop.Clock(),
		Dispatch:          func(f func()) { loop.Post(f) },
		Logger:            logger,
		Version:           opts.Version,
		Priority:          n.Priority,
		ReconnectInterval: n.ReconnectDelay(),
		PingInterval:      ping,
		HealthInterval:    seconds(n.HealthInterval),
		Multicast: sacn.MulticastConfig{
			Address:       n.Multicast.Address,
			Port:          n.Multicast.Port,
			TTL:           n.Multicast.TTL,
			SourceAddress: n.Multicast.SourceAddress,
		},
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Run starts the components and processes work until ctx is cancelled or
// Close is called. On the way out it pauses playback, stops the
// diagnostics tick, and disconnects the relay. A cancelled or expired
// context is a normal shutdown and returns nil.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(e.finished)

	err := e.loop.Run(ctx)

	// The loop has exited, so this goroutine is the only one left touching
	// component state.
	e.shutdown()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (e *Engine) start() {
	e.diag.Start()
	if e.adapter != nil {
		e.adapter.Start()
	}
	if e.autoplay != nil {
		e.sched.Load(*e.autoplay)
		if e.play {
			e.sched.Play()
		}
	}
	e.logger.Info("engine started", "network", e.adapter != nil)
}

func (e *Engine) shutdown() {
	e.sched.Pause()
	e.diag.Stop()
	if e.adapter != nil {
		e.adapter.Stop()
	}
	e.logger.Info("engine stopped")
}

// Close stops the loop and waits for Run to finish its shutdown. Safe to
// call more than once, and before Run.
func (e *Engine) Close() error {
	e.loop.Stop()
	if e.started.Load() {
		<-e.finished
	}
	return nil
}

// NetworkEnabled reports whether the engine has a relay transport.
func (e *Engine) NetworkEnabled() bool {
	return e.adapter != nil
}

// call runs f on the loop and returns its result.
func call[T any](ctx context.Context, e *Engine, f func() T) (T, error) {
	result := make(chan T, 1)
	if err := e.loop.Call(ctx, func() { result <- f() }); err != nil {
		var zero T
		return zero, err
	}
	return <-result, nil
}

// exec runs f on the loop.
func (e *Engine) exec(ctx context.Context, f func()) error {
	return e.loop.Call(ctx, f)
}
