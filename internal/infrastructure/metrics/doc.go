// Package metrics exposes engine link health to Prometheus.
//
// Collectors live on a private registry served by Handler, normally mounted
// at /metrics. The Metrics type is a diagnostics sink: the aggregator pushes
// every tick and every recorded error into it, so scrapes never touch the
// event loop.
package metrics
