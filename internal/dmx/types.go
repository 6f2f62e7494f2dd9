package dmx

// Protocol limits.
const (
	// UniverseCount is the number of addressable universes. IDs run 1..UniverseCount.
	UniverseCount = 64

	// SlotCount is the number of channels per universe. Channels run 0..SlotCount-1.
	SlotCount = 512

	// MaxValue is the largest channel level.
	MaxValue = 255

	// DefaultPriority is the protocol priority assigned to every universe.
	DefaultPriority = 100

	// DefaultStartCode is the null start code (dimmer data).
	DefaultStartCode = 0
)

// Universe is a snapshot of one universe's state.
type Universe struct {
	ID        int   `json:"id"`
	Priority  int   `json:"priority"`
	StartCode int   `json:"startCode"`
	Slots     []int `json:"slots"`
}

// universe is the stored form. Slots are held as bytes, so every stored
// value is already inside [0, 255].
type universe struct {
	priority  uint8
	startCode uint8
	slots     [SlotCount]uint8
}

func (u *universe) ints() []int {
	out := make([]int, SlotCount)
	for i, v := range u.slots {
		out[i] = int(v)
	}
	return out
}

// ValidUniverse reports whether id addresses an existing universe.
func ValidUniverse(id int) bool {
	return id >= 1 && id <= UniverseCount
}

// ValidChannel reports whether ch is a channel index within a universe.
func ValidChannel(ch int) bool {
	return ch >= 0 && ch < SlotCount
}

// Clamp limits v to the channel value range [0, 255].
func Clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > MaxValue:
		return MaxValue
	default:
		return v
	}
}
