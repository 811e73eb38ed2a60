package transport

import (
	"errors"
	"fmt"
)

// Check with errors.Is() / errors.As().
var (
	// ErrTimeout is returned when the device does not answer within the budget.
	ErrTimeout = errors.New("transport: request timed out")

	// ErrTransport covers connection refused, DNS failure, reset, bad
	// address and caller cancellation.
	ErrTransport = errors.New("transport: request failed")

	// ErrHTTPStatus is wrapped by every *HTTPError.
	ErrHTTPStatus = errors.New("transport: unexpected HTTP status")
)

// HTTPError is returned when the device answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Path       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("transport: GET /%s: HTTP %d", e.Path, e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return ErrHTTPStatus
}
