// Package engine assembles the DMX core and exposes its public operations.
//
// An Engine owns one event loop and the components that live on it:
//
//   - dmx.Store: the 64-universe channel table
//   - show.Scheduler: frame-accurate playback at 30 fps
//   - sacn.Adapter: relay ingestion, outbound data, and reconnection
//   - diagnostics.Aggregator: link health statistics and error history
//
// Components never lock; the loop is their only goroutine. Each exported
// Engine method posts a closure to the loop and waits for it, so the API
// server, the config watcher, and relay callbacks can all call in
// concurrently.
//
// # Usage
//
//	eng, err := engine.New(engine.Options{
//	    Transport: mqttClient,
//	    Logger:    log,
//	    Playback:  cfg.Playback,
//	    Network:   cfg.Network,
//	})
//	if err != nil {
//	    return err
//	}
//	go eng.Run(ctx)
//	defer eng.Close()
//
//	eng.SetChannelValue(ctx, 1, 0, 255)
//
// # Events
//
// Subscribe and SubscribeAll attach to the typed event bus. Handlers run
// on the loop during the write that triggered them and must hand slow work
// off to another goroutine.
package engine
