package eventloop

import "errors"

// Sentinel errors for event loop operations.
var (
	// ErrStopped is returned when work is submitted to a loop that has stopped.
	ErrStopped = errors.New("eventloop: stopped")

	// ErrAlreadyRunning is returned when Run is called a second time.
	ErrAlreadyRunning = errors.New("eventloop: already running")
)
