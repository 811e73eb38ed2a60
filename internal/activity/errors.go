package activity

import "errors"

// Domain errors for activity log operations.
var (
	// ErrInvalidEntry is returned when an entry is missing its ID or event,
	// or carries an unknown type.
	ErrInvalidEntry = errors.New("activity: invalid entry")

	// ErrNodeRequired is returned when a repository is used without a node ID.
	ErrNodeRequired = errors.New("activity: node id is required")
)
