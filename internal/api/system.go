package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/gray-logic-dmx/internal/show"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	Playback      PlaybackMetrics `json:"playback"`
	Network       NetworkMetrics  `json:"network"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int    `json:"connected_clients"`
	DroppedEvents    uint64 `json:"dropped_events"`
}

// PlaybackMetrics summarises the scheduler.
type PlaybackMetrics struct {
	State       show.State `json:"state"`
	CurrentTime float64    `json:"current_time"`
	Duration    float64    `json:"duration"`
	Loop        bool       `json:"loop"`
}

// NetworkMetrics summarises the relay link.
type NetworkMetrics struct {
	Enabled          bool    `json:"enabled"`
	Connected        bool    `json:"connected"`
	LatencyMS        float64 `json:"latency_ms"`
	PacketsPerSecond float64 `json:"packets_per_second"`
	ActiveUniverses  int     `json:"active_universes"`
	RecentErrors     int     `json:"recent_errors"`
}

// handleSystem returns runtime, playback, and link metrics in one response.
func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := s.engine.PlaybackStatus(ctx)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	stats, err := s.engine.Stats(ctx)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	writeJSON(w, http.StatusOK, SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
			DroppedEvents:    s.hub.Dropped(),
		},
		Playback: PlaybackMetrics{
			State:       status.State,
			CurrentTime: status.CurrentTime,
			Duration:    status.Duration,
			Loop:        status.Loop,
		},
		Network: NetworkMetrics{
			Enabled:          s.engine.NetworkEnabled(),
			Connected:        stats.Connected,
			LatencyMS:        stats.Latency,
			PacketsPerSecond: stats.PacketsPerSecond,
			ActiveUniverses:  stats.ActiveUniverses(),
			RecentErrors:     len(stats.Errors),
		},
	})
}
