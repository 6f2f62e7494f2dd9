package engine

import (
	"context"

	"github.com/nerrad567/gray-logic-dmx/internal/bridges/sacn"
	"github.com/nerrad567/gray-logic-dmx/internal/diagnostics"
	"github.com/nerrad567/gray-logic-dmx/internal/event"
)

// SendDMXData hands slots for universe to the relay. It reports false when
// the link is down or the engine has no transport; nothing is queued.
// A nil slots slice sends the universe's current contents.
func (e *Engine) SendDMXData(ctx context.Context, universe int, slots []int) (bool, error) {
	if e.adapter == nil {
		return false, nil
	}
	s := append([]int(nil), slots...)
	return call(ctx, e, func() bool {
		if slots == nil {
			s = e.store.Slots(universe)
		}
		return e.adapter.SendDMXData(universe, s)
	})
}

// SetMulticastConfig merges patch into the relay's multicast settings and
// returns the result.
func (e *Engine) SetMulticastConfig(ctx context.Context, patch sacn.MulticastPatch) (sacn.MulticastConfig, error) {
	if e.adapter == nil {
		return sacn.MulticastConfig{}, ErrNetworkDisabled
	}
	return call(ctx, e, func() sacn.MulticastConfig { return e.adapter.SetMulticastConfig(patch) })
}

// MulticastConfig returns the relay's current multicast settings.
func (e *Engine) MulticastConfig(ctx context.Context) (sacn.MulticastConfig, error) {
	if e.adapter == nil {
		return sacn.MulticastConfig{}, ErrNetworkDisabled
	}
	return call(ctx, e, e.adapter.MulticastConfig)
}

// NetworkStatus summarises the relay link. Without a transport the link
// is reported down.
func (e *Engine) NetworkStatus(ctx context.Context) (sacn.Status, error) {
	return call(ctx, e, func() sacn.Status {
		if e.adapter == nil {
			stats := e.diag.Stats()
			return sacn.Status{Latency: stats.Latency, PacketsPerSecond: stats.PacketsPerSecond}
		}
		return e.adapter.NetworkStatus()
	})
}

// Stats returns a copy of the link statistics.
func (e *Engine) Stats(ctx context.Context) (diagnostics.NetworkStats, error) {
	return call(ctx, e, e.diag.Stats)
}

// RecordError adds an error to the diagnostics history.
func (e *Engine) RecordError(ctx context.Context, ne diagnostics.NetworkError) error {
	return e.exec(ctx, func() { e.diag.RecordError(ne) })
}

// ErrorHistory returns the retained errors, oldest first.
func (e *Engine) ErrorHistory(ctx context.Context) ([]diagnostics.NetworkError, error) {
	return call(ctx, e, e.diag.ErrorHistory)
}

// ClearErrorHistory drops every recorded error.
func (e *Engine) ClearErrorHistory(ctx context.Context) error {
	return e.exec(ctx, e.diag.ClearErrorHistory)
}

// Subscribe registers h for events of kind k. h runs on the event loop and
// must not block. The returned function removes the registration.
func (e *Engine) Subscribe(k event.Kind, h event.Handler) func() {
	return e.bus.Subscribe(k, h)
}

// SubscribeAll registers h for every event.
func (e *Engine) SubscribeAll(h event.Handler) func() {
	return e.bus.SubscribeAll(h)
}
