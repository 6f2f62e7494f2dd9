// Package eventloop provides the single-writer execution context for the
// DMX engine.
//
// All mutations of engine state happen inside functions posted to one Loop
// goroutine. Producers on other goroutines (MQTT callbacks, HTTP handlers,
// wall-clock timers) never touch state directly; they Post or Call instead.
// This keeps the channel table, the playback cursor, and the link
// statistics free of locks while still letting the network adapter and the
// API run concurrently.
//
// # Clocks
//
// Components never call time.Now or time.AfterFunc themselves. They take a
// Clock:
//
//	loop := eventloop.New(logger)
//	sched := show.NewScheduler(store, bus, loop.Clock())
//
// Tests substitute a ManualClock and drive time explicitly:
//
//	clock := eventloop.NewManualClock(time.Unix(0, 0))
//	sched := show.NewScheduler(store, bus, clock)
//	sched.Play()
//	clock.Advance(time.Second) // every due tick fires, in order
package eventloop
