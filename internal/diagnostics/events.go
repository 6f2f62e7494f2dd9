package diagnostics

import "github.com/nerrad567/gray-logic-dmx/internal/event"

// StatsUpdated is published after every diagnostics tick.
type StatsUpdated struct {
	NetworkStats
}

// ErrorRecorded is published for every RecordError call.
type ErrorRecorded struct {
	NetworkError
}

// ErrorsCleared is published after ClearErrorHistory.
type ErrorsCleared struct{}

func (StatsUpdated) Kind() event.Kind  { return event.KindStatsUpdated }
func (ErrorRecorded) Kind() event.Kind { return event.KindError }
func (ErrorsCleared) Kind() event.Kind { return event.KindErrorsCleared }
