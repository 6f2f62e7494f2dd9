package show

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/nerrad567/gray-logic-dmx/internal/dmx"
)

// Playback timing.
const (
	// FrameRate is the fixed logical playback rate in frames per second.
	FrameRate = 30

	// FrameInterval is the scheduler tick period.
	FrameInterval = time.Second / FrameRate
)

// State is the scheduler's playback state.
type State string

// Playback states.
const (
	StateIdle    State = "idle"
	StateLoaded  State = "loaded"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// Sequence is a pre-computed show: an ordered list of frames played back
// at FrameRate. Frame i is applied when the playback cursor reaches i.
type Sequence struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Duration float64 `json:"duration"` // seconds
	Frames   []Frame `json:"frames"`
}

// Frame is a sparse snapshot: each listed universe has its leading
// channels overwritten with the given values when the frame is applied.
type Frame struct {
	Timestamp      int64         `json:"timestamp"` // ms from sequence start
	UniverseValues map[int][]int `json:"universeValues"`
}

// universes returns the frame's universe IDs in ascending order.
func (f Frame) universes() []int {
	ids := make([]int, 0, len(f.UniverseValues))
	for id := range f.UniverseValues {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Validate checks the sequence for structural problems. The scheduler
// plays invalid sequences anyway (bad universes are ignored by the store);
// Validate is for callers that want to reject them up front.
func (s Sequence) Validate() error {
	if s.Duration < 0 {
		return fmt.Errorf("%w: negative duration %v", ErrInvalidSequence, s.Duration)
	}
	var last int64
	for i, f := range s.Frames {
		if f.Timestamp < last {
			return fmt.Errorf("%w: frame %d timestamp %d before previous %d", ErrInvalidSequence, i, f.Timestamp, last)
		}
		last = f.Timestamp
		for id := range f.UniverseValues {
			if !dmx.ValidUniverse(id) {
				return fmt.Errorf("%w: frame %d references universe %d", ErrInvalidSequence, i, id)
			}
		}
	}
	return nil
}

// LoadFile reads a JSON sequence from disk and validates it.
func LoadFile(path string) (Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sequence{}, fmt.Errorf("reading show file: %w", err)
	}

	var seq Sequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return Sequence{}, fmt.Errorf("%w: %v", ErrInvalidSequence, err)
	}
	if err := seq.Validate(); err != nil {
		return Sequence{}, err
	}
	return seq, nil
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	State       State   `json:"state"`
	SequenceID  string  `json:"sequenceId,omitempty"`
	Name        string  `json:"name,omitempty"`
	Frame       int     `json:"frame"`
	TotalFrames int     `json:"totalFrames"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Loop        bool    `json:"loop"`
}
