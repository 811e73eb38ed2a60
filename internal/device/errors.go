package device

import "errors"

// Check with errors.Is().
var (
	// ErrMalformedField is wrapped by every DecodeWarning.
	ErrMalformedField = errors.New("device: malformed status field")
)
