// Package diagnostics derives link health from inbound sACN traffic.
//
// The Aggregator counts packets per universe between ticks and, once per
// tick (1s by default), turns the counts into packets-per-second rates.
// A universe that goes silent keeps its last rate for one tick and is
// reported inactive on the next, so a single late packet does not flap the
// display.
//
// Errors recorded through RecordError are kept in a bounded history (100 by
// default). NetworkStats.Errors carries only the five most recent messages,
// oldest first.
//
// Sinks let other components observe the aggregator without it knowing
// about them:
//   - StatsSink: called after every tick (InfluxDB writer, Prometheus gauges)
//   - ErrorSink: called for every error (ErrorLog, Prometheus counters)
//
// ErrorLog is the SQLite-backed ErrorSink. It writes on its own goroutine so
// the event loop never waits on disk.
//
// Thread Safety:
//
// Aggregator is owned by the engine's event loop and is not safe for
// concurrent use. ErrorLog is safe for concurrent use.
package diagnostics
