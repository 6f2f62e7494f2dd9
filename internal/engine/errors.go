package engine

import "errors"

// Sentinel errors for engine operations.
var (
	// ErrNetworkDisabled is returned by network operations when the engine
	// was built without a relay transport.
	ErrNetworkDisabled = errors.New("engine: network disabled")

	// ErrAlreadyRunning is returned when Run is called a second time.
	ErrAlreadyRunning = errors.New("engine: already running")
)
