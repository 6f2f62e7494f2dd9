package event

import (
	"fmt"
	"sync"
)

// Handler receives published events.
type Handler func(Event)

// Logger reports handler panics.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

type subscription struct {
	id      uint64
	kind    Kind // empty for wildcard subscriptions
	handler Handler
}

// Bus delivers events to subscribers synchronously, in subscription order,
// on the publisher's goroutine.
//
// Handlers run inside the engine's event loop and must not block. A handler
// that needs to do slow work (network writes, disk) should hand the event
// off to its own goroutine or channel.
//
// Thread Safety: Subscribe and Publish are safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
	logger Logger
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{logger: noopLogger{}}
}

// SetLogger sets the logger used to report handler panics.
func (b *Bus) SetLogger(logger Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	b.logger = logger
}

// Subscribe registers h for events of kind k. The returned function
// removes the registration; calling it more than once has no effect.
func (b *Bus) Subscribe(k Kind, h Handler) func() {
	return b.add(k, h)
}

// SubscribeAll registers h for every event.
func (b *Bus) SubscribeAll(h Handler) func() {
	return b.add("", h)
}

func (b *Bus) add(k Kind, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, kind: k, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every matching subscriber. A panicking handler is
// logged and skipped; the remaining handlers still run.
func (b *Bus) Publish(e Event) {
	if b == nil || e == nil {
		return
	}
	kind := e.Kind()

	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.kind == "" || s.kind == kind {
			targets = append(targets, s.handler)
		}
	}
	logger := b.logger
	b.mu.RUnlock()

	for _, h := range targets {
		deliver(logger, kind, h, e)
	}
}

func deliver(logger Logger, kind Kind, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panic", "kind", string(kind), "panic", fmt.Sprintf("%v", r))
		}
	}()
	h(e)
}

// On subscribes a typed handler. The kind is taken from E's zero value.
//
// Example:
//
//	unsubscribe := event.On(bus, func(e show.FrameUpdate) {
//	    fmt.Println(e.Frame, e.TotalFrames)
//	})
func On[E Event](b *Bus, fn func(E)) func() {
	var zero E
	return b.Subscribe(zero.Kind(), func(e Event) {
		if typed, ok := e.(E); ok {
			fn(typed)
		}
	})
}
