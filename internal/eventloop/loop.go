package eventloop

import (
	"context"
	"fmt"
	"sync"
)

// queueSize bounds the number of posted functions waiting to run.
// Inbound traffic for 64 universes at 44 Hz fits comfortably.
const queueSize = 4096

// Logger is the logging interface used to report recovered panics.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Loop runs posted functions one at a time on a single goroutine.
//
// Every piece of engine state (channel table, playback cursor, link
// statistics) is only ever touched from inside a function running on the
// loop, so none of it needs its own locking. Timers created through
// Loop.Clock post their callbacks back onto the loop.
//
// Thread Safety: Post, Call, and Clock are safe for concurrent use.
type Loop struct {
	queue chan func()
	done  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	stopped   chan struct{}

	clock  *loopClock
	logger Logger
}

// New creates a loop. Call Run to start processing.
func New(logger Logger) *Loop {
	if logger == nil {
		logger = noopLogger{}
	}
	l := &Loop{
		queue:   make(chan func(), queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  logger,
	}
	l.clock = &loopClock{loop: l}
	return l
}

// Run processes posted functions until ctx is cancelled or Stop is called.
// It must be called exactly once; later calls return ErrAlreadyRunning.
func (l *Loop) Run(ctx context.Context) error {
	started := false
	l.startOnce.Do(func() { started = true })
	if !started {
		return ErrAlreadyRunning
	}
	defer close(l.stopped)

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.done:
			return nil
		case f := <-l.queue:
			l.execute(f)
		}
	}
}

// execute runs f, recovering from panics so one faulty callback cannot
// take the whole engine down.
func (l *Loop) execute(f func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event loop task panic", "panic", fmt.Sprintf("%v", r))
		}
	}()
	f()
}

// Stop ends Run. Functions still queued are discarded. Safe to call more
// than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.stopped
}

// Post queues f to run on the loop. It blocks while the queue is full and
// returns false if the loop has been stopped.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.queue <- f:
		return true
	case <-l.done:
		return false
	}
}

// Call runs f on the loop and waits for it to finish.
//
// It must not be called from a function already running on the loop.
//
// Returns:
//   - ErrStopped if the loop stops before f runs
//   - ctx.Err() if ctx is done first; f may still run later
func (l *Loop) Call(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	posted := l.Post(func() {
		defer close(finished)
		f()
	})
	if !posted {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clock returns a clock whose timers fire on the loop.
func (l *Loop) Clock() Clock {
	return l.clock
}
