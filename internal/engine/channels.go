package engine

import (
	"context"

	"github.com/nerrad567/gray-logic-dmx/internal/dmx"
)

// ChannelValue returns one channel's level, 0 for addresses that do not exist.
func (e *Engine) ChannelValue(ctx context.Context, universe, channel int) (int, error) {
	return call(ctx, e, func() int { return e.store.Channel(universe, channel) })
}

// SetChannelValue writes one channel. Out-of-range addresses are ignored.
func (e *Engine) SetChannelValue(ctx context.Context, universe, channel, value int) error {
	return e.exec(ctx, func() { e.store.SetChannel(universe, channel, value) })
}

// SetMultipleChannels writes values into consecutive channels from start.
// Values that would land past channel 511 are dropped.
func (e *Engine) SetMultipleChannels(ctx context.Context, universe, start int, values []int) error {
	v := append([]int(nil), values...)
	return e.exec(ctx, func() { e.store.SetBulk(universe, start, v) })
}

// ClearUniverse zeroes one universe.
func (e *Engine) ClearUniverse(ctx context.Context, universe int) error {
	return e.exec(ctx, func() { e.store.Clear(universe) })
}

// ClearAllUniverses zeroes every universe.
func (e *Engine) ClearAllUniverses(ctx context.Context) error {
	return e.exec(ctx, e.store.ClearAll)
}

type universeResult struct {
	u  dmx.Universe
	ok bool
}

// Universe returns a snapshot of one universe. ok is false for IDs
// outside 1..64.
func (e *Engine) Universe(ctx context.Context, universe int) (u dmx.Universe, ok bool, err error) {
	r, err := call(ctx, e, func() universeResult {
		snap, found := e.store.Universe(universe)
		return universeResult{u: snap, ok: found}
	})
	return r.u, r.ok, err
}

// SubscribeToUniverse registers fn to receive a copy of the universe's
// slots after every change. fn runs on the event loop and must not block.
// The returned function removes the registration.
func (e *Engine) SubscribeToUniverse(ctx context.Context, universe int, fn dmx.SlotsFunc) (func(), error) {
	unsubscribe, err := call(ctx, e, func() func() { return e.store.Subscribe(universe, fn) })
	if err != nil {
		return func() {}, err
	}
	return func() { e.loop.Post(unsubscribe) }, nil
}
