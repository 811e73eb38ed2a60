package automation

import "errors"

// Domain errors for the automation package.
var (
	// ErrNoSender is returned by Run when the AlarmSync has nothing to
	// send corrections through.
	ErrNoSender = errors.New("automation: no command sender")
)
