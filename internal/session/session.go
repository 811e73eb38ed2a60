package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/homepanel-core/internal/device"
	"github.com/nerrad567/homepanel-core/internal/transport"
)

// DefaultPollInterval is the STATUS polling period while connected.
const DefaultPollInterval = 2 * time.Second

// Requester sends one request to the device. *transport.Client satisfies it.
type Requester interface {
	Request(ctx context.Context, address, path string) (string, error)
}

// Merger applies decoded fields to the cached state. *device.Store satisfies it.
type Merger interface {
	Merge(p device.Partial) device.State
}

// Logger defines the logging interface used by the Session.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Session.
type Options struct {
	Transport Requester
	Store     Merger

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	// Timeout bounds each request made by the session. Zero leaves the
	// budget to the transport.
	Timeout time.Duration

	Logger Logger
}

// Info describes the session for the view layer.
type Info struct {
	Address      string        `json:"address"`
	Polling      bool          `json:"polling"`
	PollInterval time.Duration `json:"poll_interval_ns"`
}

// Session owns the device address and the polling loop, and is the only
// path by which commands reach the device.
//
// At most one request is in flight at a time. Poll ticks that find a
// request in flight are skipped; commands wait their turn.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Session struct {
	transport Requester
	store     Merger
	interval  time.Duration
	timeout   time.Duration
	logger    Logger

	// slot is the single in-flight token.
	slot chan struct{}

	mu      sync.Mutex
	address string
	cancel  context.CancelFunc
	done    chan struct{}

	// generation changes on every Connect and Disconnect. A response is
	// only applied if the generation it was issued under is still current.
	generation atomic.Uint64
	applyMu    sync.Mutex
}

// New creates a Session. It does not start polling.
func New(opts Options) *Session {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Session{
		transport: opts.Transport,
		store:     opts.Store,
		interval:  interval,
		timeout:   opts.Timeout,
		logger:    logger,
		slot:      make(chan struct{}, 1),
	}
}

// Connect stores address, fetches status immediately and then polls
// until Disconnect. Connecting while already polling restarts the loop
// against the new address; results still arriving for the old one are
// discarded.
func (s *Session) Connect(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return ErrNoAddress
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.address = address
	gen := s.generation.Add(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.loop(ctx, done, gen, address)

	s.logger.Info("polling started", "address", address, "interval", s.interval)
	return nil
}

// Disconnect stops polling and marks the state disconnected. The address
// is kept so a later Connect or command can reuse it.
func (s *Session) Disconnect() {
	s.mu.Lock()
	wasPolling := s.stopLocked()
	s.mu.Unlock()

	s.applyMu.Lock()
	s.generation.Add(1)
	s.store.Merge(device.Partial{}.WithConnected(false))
	s.applyMu.Unlock()

	if wasPolling {
		s.logger.Info("polling stopped")
	}
}

// Close disconnects and waits for the polling goroutine to exit.
func (s *Session) Close() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	s.Disconnect()
	if done != nil {
		<-done
	}
}

// stopLocked cancels the running loop, if any. s.mu must be held.
func (s *Session) stopLocked() bool {
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	return true
}

// Address returns the stored device address, possibly empty.
func (s *Session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// Info returns the current address and whether the loop is running.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		Address:      s.address,
		Polling:      s.cancel != nil,
		PollInterval: s.interval,
	}
}

func (s *Session) loop(ctx context.Context, done chan struct{}, gen uint64, address string) {
	defer close(done)

	// The first fetch waits for the slot: a request for the previous
	// address may still be unwinding.
	s.poll(ctx, gen, address, true)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx, gen, address, false)
		}
	}
}

// Refresh performs one status poll right now, outside the ticker. It
// reports whether a request was dispatched: false means there is no
// address or a request was already in flight.
func (s *Session) Refresh(ctx context.Context) bool {
	address := s.Address()
	if address == "" {
		return false
	}
	return s.poll(ctx, s.generation.Load(), address, false)
}

// poll makes one STATUS request. Unless wait is set it gives up straight
// away when the slot is taken.
func (s *Session) poll(ctx context.Context, gen uint64, address string, wait bool) bool {
	if !s.acquire(ctx, wait) {
		s.logger.Debug("poll skipped, request in flight")
		return false
	}
	defer s.release()

	body, err := s.request(ctx, address, device.EncodeCommand(device.RequestStatus{}))
	if ctx.Err() != nil {
		// The loop was stopped or the caller gave up; neither says
		// anything about the device.
		return true
	}
	if err != nil {
		s.logger.Debug("status poll failed", "address", address, "error", err)
	}
	s.apply(gen, body, err)
	return true
}

// SendCommand sends cmd once. The reply is decoded and merged exactly
// like a poll. On failure the state is marked disconnected and the error
// is returned; nothing is retried.
//
// Parameters:
//   - ctx: Bounds the wait for the in-flight slot and the request
//   - cmd: Command to send
//
// Returns:
//   - error: ErrNoAddress, a transport error, or ctx's error. A cancelled
//     ctx leaves the connection state untouched.
func (s *Session) SendCommand(ctx context.Context, cmd device.Command) error {
	address := s.Address()
	if address == "" {
		return ErrNoAddress
	}
	gen := s.generation.Load()
	token := device.EncodeCommand(cmd)

	if !s.acquire(ctx, true) {
		return fmt.Errorf("waiting to send %s: %w", token, ctx.Err())
	}
	defer s.release()

	body, err := s.request(ctx, address, token)
	if ctx.Err() != nil {
		// The caller gave up; the device's reachability is unknown.
		return fmt.Errorf("sending %s: %w", token, ctx.Err())
	}
	s.apply(gen, body, err)
	if err != nil {
		s.logger.Warn("device command failed", "command", token, "address", address, "error", err)
		return fmt.Errorf("sending %s: %w", token, err)
	}

	s.logger.Debug("device command sent", "command", token)
	return nil
}

// acquire takes the in-flight slot, blocking until ctx is done if wait is set.
func (s *Session) acquire(ctx context.Context, wait bool) bool {
	if !wait {
		select {
		case s.slot <- struct{}{}:
			return true
		default:
			return false
		}
	}
	select {
	case s.slot <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) release() {
	<-s.slot
}

func (s *Session) request(ctx context.Context, address, path string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.transport.Request(ctx, address, path)
}

// apply merges a response, or the disconnected flag after a failure,
// if gen is still the current generation.
func (s *Session) apply(gen uint64, body string, err error) {
	var p device.Partial
	if err != nil {
		p = p.WithConnected(false)
	} else {
		var warnings []device.DecodeWarning
		p, warnings = device.DecodeStatus(body)
		for _, w := range warnings {
			s.logger.Warn("status field rejected", "key", w.Key, "value", w.Value, "error", w.Err)
		}
		p = p.WithConnected(true)
	}

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	if s.generation.Load() != gen {
		s.logger.Debug("discarding response from superseded connection")
		return
	}
	s.store.Merge(p)
}

var _ Requester = (*transport.Client)(nil)
