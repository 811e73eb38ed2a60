package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the hard budget for one device request.
	DefaultTimeout = 3 * time.Second

	// maxBodySize caps how much of a response body is read. Status lines
	// are well under 100 bytes.
	maxBodySize = 64 << 10
)

// Client issues plain GET requests to the device.
//
// The same Client can talk to any address; the address is passed per
// request. No retries are made.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			// The firmware never redirects; treat one as a bad response.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the per-request budget.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Request sends GET <address>/<path> and returns the trimmed body.
//
// Parameters:
//   - ctx: Caller context; the request also stops at the Client's timeout
//   - address: host[:port] or a full http(s):// base URL
//   - path: Command token such as "STATUS" or "SET_THRESHOLD:30.0"
//
// Returns:
//   - string: Response body with surrounding whitespace removed
//   - error: ErrTimeout, ErrTransport, or *HTTPError
func (c *Client) Request(ctx context.Context, address, path string) (string, error) {
	target, err := BuildURL(address, path)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classify(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", classify(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPError{StatusCode: resp.StatusCode, Path: path}
	}

	return strings.TrimSpace(string(body)), nil
}

// BuildURL joins a device address and a command token.
// "192.168.4.1" and "http://192.168.4.1/" both give "http://192.168.4.1/STATUS".
func BuildURL(address, path string) (string, error) {
	base := strings.TrimSpace(address)
	if base == "" {
		return "", fmt.Errorf("%w: empty address", ErrTransport)
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/"), nil
}

// classify maps a client error onto the package sentinels. A deadline
// hit counts as a timeout; caller cancellation stays a transport error.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
