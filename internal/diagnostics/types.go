package diagnostics

import (
	"maps"
	"time"
)

// ExposedErrors is the number of recent error messages carried in
// NetworkStats.Errors.
const ExposedErrors = 5

// ErrorType classifies a network error.
type ErrorType string

// Error types.
const (
	// ErrorConnection covers relay connect, disconnect, and publish failures.
	ErrorConnection ErrorType = "connection"

	// ErrorPacket covers inbound messages that could not be decoded.
	ErrorPacket ErrorType = "packet"

	// ErrorUniverse covers inbound messages for a universe that does not exist.
	ErrorUniverse ErrorType = "universe"
)

// Valid reports whether t is a known error type.
func (t ErrorType) Valid() bool {
	switch t {
	case ErrorConnection, ErrorPacket, ErrorUniverse:
		return true
	}
	return false
}

// NetworkError is one recorded link problem.
type NetworkError struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Universe  *int      `json:"universe,omitempty"`
}

// UniverseStats is the link health of one universe.
type UniverseStats struct {
	Active           bool      `json:"active"`
	PacketsPerSecond float64   `json:"packetsPerSecond"`
	LastPacketTime   time.Time `json:"lastPacketTime"`
	Errors           int       `json:"errors"`
}

// NetworkStats is the aggregate link health.
type NetworkStats struct {
	Connected        bool                  `json:"connected"`
	Latency          float64               `json:"latency"` // milliseconds
	PacketsPerSecond float64               `json:"packetsPerSecond"`
	Errors           []string              `json:"errors"`
	UniverseStats    map[int]UniverseStats `json:"universeStats"`
}

// clone returns a deep copy.
func (s NetworkStats) clone() NetworkStats {
	out := s
	out.Errors = append([]string{}, s.Errors...)
	out.UniverseStats = maps.Clone(s.UniverseStats)
	if out.UniverseStats == nil {
		out.UniverseStats = map[int]UniverseStats{}
	}
	return out
}

// ActiveUniverses counts universes currently marked active.
func (s NetworkStats) ActiveUniverses() int {
	n := 0
	for _, u := range s.UniverseStats {
		if u.Active {
			n++
		}
	}
	return n
}

// UniverseRef returns a pointer suitable for NetworkError.Universe.
func UniverseRef(u int) *int {
	return &u
}
