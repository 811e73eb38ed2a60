package session

import "errors"

var (
	// ErrNoAddress is returned when no device address has been set.
	// No request is made.
	ErrNoAddress = errors.New("session: no device address")
)
