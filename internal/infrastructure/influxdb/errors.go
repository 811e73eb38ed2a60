package influxdb

import "errors"

// Check with errors.Is().
var (
	// ErrNotConnected indicates the client has been closed.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial ping failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed wraps errors reported by the background writer.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled indicates influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
