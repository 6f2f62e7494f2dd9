// Package influxdb records sACN link diagnostics in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with Gray Logic
// patterns for connection management, batched writes, and health
// monitoring.
//
// # Purpose
//
// The client is registered as a stats and error sink on the diagnostics
// aggregator. Every tick becomes:
//   - one sacn_link point (connected, latency, packets/s, active universes)
//   - one sacn_universe point per universe that has received data
//
// and every recorded network error becomes a sacn_error point.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	agg.AddStatsSink(client)
//	agg.AddErrorSink(client)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes, so the sink
// never stalls the event loop.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via the
// SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
