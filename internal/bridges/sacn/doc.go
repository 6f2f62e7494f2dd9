// Package sacn connects the DMX engine to an sACN (E1.31) relay over MQTT.
//
// The engine never touches multicast sockets itself. A relay process joins
// the multicast groups, decodes packets, and exchanges {universe, slots}
// JSON with the engine. This package is the engine's side of that link:
//
//	relay ──data──▶ Adapter ──SetBulk──▶ dmx.Store
//	                   │
//	                   └──RecordPacket / RecordError──▶ diagnostics.Aggregator
//
// # Link lifecycle
//
// Start makes one connection attempt. Every successful connect subscribes to
// inbound data, sends a join request for each of the 64 universes (group
// 239.255.{u/256}.{u%256}), and pushes the current multicast configuration.
// Every failure or lost link marks diagnostics disconnected, records a
// connection error, and schedules another attempt after a fixed interval
// (1s by default). There is no backoff and no retry limit.
//
// # Inbound data
//
// Malformed JSON is recorded as a packet error. A universe outside 1..64 is
// recorded as a universe error. Both are dropped. Valid data is counted for
// diagnostics and written to the store at offset 0.
//
// # Outbound data
//
// SendDMXData publishes immediately when connected and returns false
// otherwise. Nothing is buffered across a disconnect.
//
// # Threading
//
// The adapter is owned by the engine's event loop. Transport callbacks are
// handed to the loop through Options.Dispatch, and every timer is created on
// the injected eventloop.Clock.
package sacn
