package sacn

import "errors"

// Errors returned by NewAdapter.
var (
	// ErrTransportRequired is returned when no transport is supplied.
	ErrTransportRequired = errors.New("sacn: transport is required")

	// ErrStoreRequired is returned when no channel store is supplied.
	ErrStoreRequired = errors.New("sacn: store is required")

	// ErrDiagnosticsRequired is returned when no diagnostics sink is supplied.
	ErrDiagnosticsRequired = errors.New("sacn: diagnostics is required")

	// ErrClockRequired is returned when no clock is supplied.
	ErrClockRequired = errors.New("sacn: clock is required")
)
