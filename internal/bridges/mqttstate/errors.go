package mqttstate

import "errors"

// Domain errors for the MQTT state bridge.
var (
	// ErrUnknownCommand is returned for a command topic the bridge does not handle.
	ErrUnknownCommand = errors.New("mqttstate: unknown command")

	// ErrInvalidPayload is returned when a command payload cannot be parsed.
	ErrInvalidPayload = errors.New("mqttstate: invalid payload")

	// ErrCommandQueueFull is returned when commands arrive faster than the
	// device can take them.
	ErrCommandQueueFull = errors.New("mqttstate: command queue full")
)
