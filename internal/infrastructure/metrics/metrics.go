package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-dmx/internal/diagnostics"
)

const namespace = "graylogic_dmx"

// Metrics holds Prometheus collectors for the engine.
//
// It satisfies diagnostics.StatsSink and diagnostics.ErrorSink; the engine
// registers it with the aggregator so every tick refreshes the link gauges.
//
// Thread Safety: All methods are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	connected        prometheus.Gauge
	latency          prometheus.Gauge
	packetsPerSecond prometheus.Gauge
	activeUniverses  prometheus.Gauge
	universeRate     *prometheus.GaugeVec
	universeActive   *prometheus.GaugeVec
	networkErrors    *prometheus.CounterVec
	ticks            prometheus.Counter

	requestsTotal *prometheus.CounterVec
	httpErrors    prometheus.Counter
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_connected",
			Help:      "1 when the sACN relay link is up",
		}),
		latency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_latency_milliseconds",
			Help:      "Last measured relay round-trip time",
		}),
		packetsPerSecond: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "packets_per_second",
			Help:      "Inbound packet rate summed over all universes",
		}),
		activeUniverses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_universes",
			Help:      "Number of universes currently receiving data",
		}),
		universeRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "universe_packets_per_second",
			Help:      "Inbound packet rate per universe",
		}, []string{"universe"}),
		universeActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "universe_active",
			Help:      "1 when the universe is receiving data",
		}, []string{"universe"}),
		networkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "network_errors_total",
			Help:      "Recorded network errors by type",
		}, []string{"type"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_ticks_total",
			Help:      "Diagnostics roll-ups performed",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests received by method",
		}, []string{"method"}),
		httpErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP responses with status 4xx or 5xx",
		}),
	}

	m.registry.MustRegister(
		m.connected,
		m.latency,
		m.packetsPerSecond,
		m.activeUniverses,
		m.universeRate,
		m.universeActive,
		m.networkErrors,
		m.ticks,
		m.requestsTotal,
		m.httpErrors,
	)
	return m
}

// WriteStats refreshes the link gauges from one diagnostics tick.
func (m *Metrics) WriteStats(stats diagnostics.NetworkStats, _ time.Time) {
	m.ticks.Inc()
	m.connected.Set(boolToFloat(stats.Connected))
	m.latency.Set(stats.Latency)
	m.packetsPerSecond.Set(stats.PacketsPerSecond)
	m.activeUniverses.Set(float64(stats.ActiveUniverses()))

	for u, us := range stats.UniverseStats {
		label := strconv.Itoa(u)
		m.universeRate.WithLabelValues(label).Set(us.PacketsPerSecond)
		m.universeActive.WithLabelValues(label).Set(boolToFloat(us.Active))
	}
}

// WriteError counts one recorded network error.
func (m *Metrics) WriteError(e diagnostics.NetworkError) {
	m.networkErrors.WithLabelValues(string(e.Type)).Inc()
}

// IncRequests counts one HTTP request.
func (m *Metrics) IncRequests(method string) {
	m.requestsTotal.WithLabelValues(method).Inc()
}

// IncHTTPErrors counts one HTTP error response.
func (m *Metrics) IncHTTPErrors() {
	m.httpErrors.Inc()
}

// Handler returns an http.Handler that serves the registry in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
