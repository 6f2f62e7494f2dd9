package show

import "errors"

// Domain errors for the show package.
var (
	// ErrInvalidSequence is returned when a show sequence fails validation.
	ErrInvalidSequence = errors.New("show: invalid sequence")
)
