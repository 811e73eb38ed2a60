package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/homepanel-core/internal/activity"
	"github.com/nerrad567/homepanel-core/internal/device"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/config"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/logging"
	"github.com/nerrad567/homepanel-core/internal/session"
	"github.com/nerrad567/homepanel-core/internal/settings"
	"github.com/nerrad567/homepanel-core/internal/transport"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config config.APIConfig
	WS     config.WebSocketConfig
	Logger *logging.Logger

	Store      *device.Store
	Session    *session.Session
	Activity   *activity.Log
	Thresholds *settings.Thresholds

	// Prober sends probe requests. It should be the session's transport so
	// probes get the same timeout budget as polls.
	Prober transport.Requester

	Version string

	// Now defaults to time.Now. Advice is evaluated against it.
	Now func() time.Time
}

// Server is the view API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	store      *device.Store
	session    *session.Session
	activity   *activity.Log
	thresholds *settings.Thresholds
	prober     transport.Requester
	version    string
	now        func() time.Time

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc // cancels background goroutines on Close()

	mu       sync.Mutex
	addr     string
	detaches []func()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, store, session, thresholds)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if deps.Session == nil {
		return nil, fmt.Errorf("device session is required")
	}
	if deps.Thresholds == nil {
		return nil, fmt.Errorf("threshold settings are required")
	}
	// Activity and Prober are optional; their endpoints degrade to empty
	// results and 503 respectively.

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		store:      deps.Store,
		session:    deps.Session,
		activity:   deps.Activity,
		thresholds: deps.Thresholds,
		prober:     deps.Prober,
		version:    deps.Version,
		now:        now,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, subscribes it to the store and the activity
// log, and serves in a background goroutine. The listener is bound before
// Start returns, so a port already in use is reported here.
//
// Parameters:
//   - ctx: Parent context for the hub (not used for listener lifetime)
//
// Returns:
//   - error: If the listener cannot be bound
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding API listener on %s: %w", addr, err)
	}

	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	s.hub.SetReplay(s.replay)
	go s.hub.Run(srvCtx)

	s.subscribeEvents()

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.logger.Info("API server starting", "address", s.Addr())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the address the server is listening on, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close gracefully shuts down the API server.
//
// It detaches from the store and activity log, then waits up to 10 seconds
// for in-flight requests to complete before forcefully closing connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	s.mu.Lock()
	detaches := s.detaches
	s.detaches = nil
	s.mu.Unlock()
	for _, detach := range detaches {
		detach()
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
