package settings

import "errors"

// Domain errors for settings operations.
var (
	// ErrOutOfRange is returned for a threshold outside the sensor's range.
	ErrOutOfRange = errors.New("settings: threshold out of range")

	// ErrPushFailed is returned when the threshold was applied locally but
	// could not be sent to the device.
	ErrPushFailed = errors.New("settings: pushing threshold to device failed")
)
