package sacn

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/gray-logic-dmx/internal/eventloop"
	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/mqtt"
)

// HealthPublisher is the interface for publishing health messages.
// Transport satisfies it.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// HealthSnapshot is the adapter state a health message is built from.
type HealthSnapshot struct {
	Connected       bool
	ConnectedSince  time.Time
	LatencyMs       float64
	UniversesJoined int
	PacketsReceived uint64
	PacketsSent     uint64
	Errors          uint64
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// BridgeID is the identifier carried in health messages.
	BridgeID string

	// Version is the engine version.
	Version string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	// Publisher sends the messages.
	Publisher HealthPublisher

	// Clock drives the publish timer and uptime.
	Clock eventloop.Clock

	// Snapshot returns the current adapter state.
	Snapshot func() HealthSnapshot
}

// HealthReporter publishes adapter health at a fixed interval.
//
// Thread Safety: Not safe for concurrent use. The timer runs on the
// clock's goroutine, which for the engine is the event loop.
type HealthReporter struct {
	bridgeID  string
	version   string
	startTime time.Time
	interval  time.Duration
	publisher HealthPublisher
	clock     eventloop.Clock
	snapshot  func() HealthSnapshot

	timer   eventloop.Timer
	running bool

	logger Logger
}

// NewHealthReporter creates a new health reporter.
//
// Parameters:
//   - cfg: Configuration for the health reporter
//
// Returns:
//   - *HealthReporter: Ready to start (call Start to begin reporting)
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	snapshot := cfg.Snapshot
	if snapshot == nil {
		snapshot = func() HealthSnapshot { return HealthSnapshot{} }
	}

	return &HealthReporter{
		bridgeID:  cfg.BridgeID,
		version:   cfg.Version,
		startTime: cfg.Clock.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		clock:     cfg.Clock,
		snapshot:  snapshot,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	if logger != nil {
		h.logger = logger
	}
}

// Start begins periodic reporting. Calling Start twice has no effect.
func (h *HealthReporter) Start() {
	if h.running {
		return
	}
	h.running = true
	h.schedule()
}

func (h *HealthReporter) schedule() {
	h.timer = h.clock.AfterFunc(h.interval, func() {
		if !h.running {
			return
		}
		if h.publisher != nil && h.publisher.IsConnected() {
			if err := h.PublishNow(); err != nil {
				h.logger.Warn("failed to publish health", "error", err)
			}
		}
		h.schedule()
	})
}

// Stop ends periodic reporting and publishes a final "stopping" status
// (best effort). Safe to call multiple times.
func (h *HealthReporter) Stop() {
	if !h.running {
		return
	}
	h.running = false
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	//nolint:errcheck // best effort during shutdown
	h.publish(HealthStopping, "adapter stopping")
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus(h.snapshot())
	return h.publish(status, reason)
}

// determineStatus evaluates the current adapter status.
func (h *HealthReporter) determineStatus(s HealthSnapshot) (HealthStatus, string) {
	switch {
	case !s.Connected:
		return HealthDegraded, "relay disconnected"
	case s.UniversesJoined == 0:
		return HealthDegraded, "no universes joined"
	default:
		return HealthHealthy, ""
	}
}

// Message builds a health message with the given status from the current
// snapshot.
func (h *HealthReporter) Message(status HealthStatus, reason string) HealthMessage {
	s := h.snapshot()
	now := h.clock.Now()

	conn := &ConnectionStatus{Status: "disconnected"}
	if s.Connected {
		since := s.ConnectedSince.UTC()
		conn = &ConnectionStatus{
			Status:         "connected",
			ConnectedSince: &since,
			LatencyMs:      s.LatencyMs,
		}
	}

	return HealthMessage{
		Bridge:        h.bridgeID,
		Timestamp:     now.UTC(),
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(now.Sub(h.startTime).Seconds()),
		Connection:    conn,
		Statistics: &Statistics{
			PacketsReceived: s.PacketsReceived,
			PacketsSent:     s.PacketsSent,
			Errors:          s.Errors,
		},
		UniversesJoined: s.UniversesJoined,
		Reason:          reason,
	}
}

func (h *HealthReporter) publish(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(h.Message(status, reason))
	if err != nil {
		return err
	}
	return h.publisher.Publish(mqtt.Topics{}.Health(), payload, 1, true)
}
