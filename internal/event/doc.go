// Package event defines the engine's closed set of event kinds and the
// synchronous bus that carries them.
//
// Each component defines its own payload structs (show.FrameUpdate,
// dmx.ChannelUpdate, diagnostics.StatsUpdated, ...) and publishes them on a
// shared Bus. Consumers subscribe by kind, by type with On, or to everything
// with SubscribeAll (the WebSocket hub does this).
//
// Delivery is synchronous and ordered: a SetChannel call returns only after
// every ChannelUpdate subscriber has run.
package event
