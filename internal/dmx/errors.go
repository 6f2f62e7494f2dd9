package dmx

import (
	"errors"
	"fmt"
)

// Domain errors for the dmx package.
//
// The Store itself never returns these: out-of-range writes are ignored.
// They exist for callers at the edge (the HTTP API) that want to reject
// bad addresses instead of silently dropping them.
var (
	// ErrInvalidUniverse is returned when a universe ID is outside 1..64.
	ErrInvalidUniverse = errors.New("dmx: invalid universe")

	// ErrInvalidChannel is returned when a channel index is outside 0..511.
	ErrInvalidChannel = errors.New("dmx: invalid channel")
)

// ValidateAddress returns an error describing why universe/channel does not
// address a slot, or nil.
func ValidateAddress(universe, channel int) error {
	if !ValidUniverse(universe) {
		return fmt.Errorf("%w: %d", ErrInvalidUniverse, universe)
	}
	if !ValidChannel(channel) {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, channel)
	}
	return nil
}
