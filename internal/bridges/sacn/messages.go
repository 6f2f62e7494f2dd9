package sacn

import (
	"encoding/json"
	"fmt"
	"time"
)

// DataMessage is a decoded universe published by the relay.
// Topic: graylogic/sacn/data/{universe}
type DataMessage struct {
	Universe int   `json:"universe"`
	Slots    []int `json:"slots"`
}

// SendMessage carries local slot data for the relay to transmit.
// Topic: graylogic/sacn/send/{universe}
type SendMessage struct {
	Universe int   `json:"universe"`
	Slots    []int `json:"slots"`
	Priority int   `json:"priority"`
}

// JoinMessage asks the relay to join a universe's multicast group.
// Topic: graylogic/sacn/join/{universe}
type JoinMessage struct {
	Universe int    `json:"universe"`
	Address  string `json:"address"`
}

// PingMessage is the latency probe. The relay echoes it unchanged on the
// pong topic.
type PingMessage struct {
	ID   string `json:"id"`
	Sent int64  `json:"sent"` // unix milliseconds
}

// MulticastConfig mirrors the relay's multicast socket settings.
// Topic: graylogic/sacn/config (retained)
type MulticastConfig struct {
	Address       string `json:"address"`
	Port          int    `json:"port"`
	TTL           int    `json:"ttl"`
	SourceAddress string `json:"sourceAddress"`
}

// DefaultMulticastConfig returns the E1.31 defaults.
func DefaultMulticastConfig() MulticastConfig {
	return MulticastConfig{
		Address:       "239.255.0.1",
		Port:          5568,
		TTL:           128,
		SourceAddress: "0.0.0.0",
	}
}

// MulticastPatch is a partial MulticastConfig. Nil fields are left unchanged.
type MulticastPatch struct {
	Address       *string `json:"address,omitempty"`
	Port          *int    `json:"port,omitempty"`
	TTL           *int    `json:"ttl,omitempty"`
	SourceAddress *string `json:"sourceAddress,omitempty"`
}

// Apply returns c with every non-nil field of p copied over.
func (p MulticastPatch) Apply(c MulticastConfig) MulticastConfig {
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.Port != nil {
		c.Port = *p.Port
	}
	if p.TTL != nil {
		c.TTL = *p.TTL
	}
	if p.SourceAddress != nil {
		c.SourceAddress = *p.SourceAddress
	}
	return c
}

// Empty reports whether p changes nothing.
func (p MulticastPatch) Empty() bool {
	return p.Address == nil && p.Port == nil && p.TTL == nil && p.SourceAddress == nil
}

// UniverseAddress returns the multicast group for a universe:
// 239.255.{hi}.{lo} where hi and lo are the universe number's bytes.
func UniverseAddress(universe int) string {
	return fmt.Sprintf("239.255.%d.%d", universe/256, universe%256)
}

// HealthStatus represents the operational status of the adapter.
type HealthStatus string

const (
	// HealthHealthy indicates the relay link is up and universes are joined.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates the relay link is down or nothing is joined.
	HealthDegraded HealthStatus = "degraded"

	// HealthOffline is the LWT status published by the broker.
	HealthOffline HealthStatus = "offline"

	// HealthStarting indicates the adapter is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the adapter is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports adapter status.
// Topic: graylogic/health/sacn
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge          string            `json:"bridge"`
	Timestamp       time.Time         `json:"timestamp"`
	Status          HealthStatus      `json:"status"`
	Version         string            `json:"version,omitempty"`
	UptimeSeconds   int64             `json:"uptime_seconds"`
	Connection      *ConnectionStatus `json:"connection,omitempty"`
	Statistics      *Statistics       `json:"statistics,omitempty"`
	UniversesJoined int               `json:"universes_joined"`
	Reason          string            `json:"reason,omitempty"`
}

// ConnectionStatus describes the relay link.
type ConnectionStatus struct {
	// Status is "connected" or "disconnected".
	Status         string     `json:"status"`
	ConnectedSince *time.Time `json:"connected_since,omitempty"`
	LatencyMs      float64    `json:"latency_ms"`
}

// Statistics contains adapter counters since start.
type Statistics struct {
	PacketsReceived uint64 `json:"packets_received"`
	PacketsSent     uint64 `json:"packets_sent"`
	Errors          uint64 `json:"errors"`
}

// NewLWTPayload returns the Last Will payload for the adapter's health topic.
func NewLWTPayload(bridgeID string) ([]byte, error) {
	return json.Marshal(HealthMessage{
		Bridge: bridgeID,
		Status: HealthOffline,
		Reason: "unexpected_disconnect",
	})
}
