package dmx

import "github.com/nerrad567/gray-logic-dmx/internal/event"

// ChannelUpdate is published after a single channel write.
type ChannelUpdate struct {
	Universe int `json:"universe"`
	Channel  int `json:"channel"`
	Value    int `json:"value"`
}

// BulkUpdate is published once per SetBulk call. Values are the clamped
// input values; entries that fell outside the universe were not written.
type BulkUpdate struct {
	Universe     int   `json:"universe"`
	StartChannel int   `json:"startChannel"`
	Values       []int `json:"values"`
}

// UniverseCleared is published after Clear.
type UniverseCleared struct {
	Universe int `json:"universe"`
}

// AllUniversesCleared is published after ClearAll.
type AllUniversesCleared struct{}

func (ChannelUpdate) Kind() event.Kind       { return event.KindChannelUpdate }
func (BulkUpdate) Kind() event.Kind          { return event.KindBulkUpdate }
func (UniverseCleared) Kind() event.Kind     { return event.KindUniverseCleared }
func (AllUniversesCleared) Kind() event.Kind { return event.KindAllUniversesCleared }
