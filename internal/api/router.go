package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Read models
		r.Get("/state", s.handleGetState)
		r.Get("/advice", s.handleGetAdvice)
		r.Get("/activity", s.handleListActivity)

		// Connection management
		r.Route("/connection", func(r chi.Router) {
			r.Get("/", s.handleGetConnection)
			r.Put("/", s.handleConnect)
			r.Delete("/", s.handleDisconnect)
			r.Post("/probe", s.handleProbe)
			r.Post("/refresh", s.handleRefresh)
		})

		// Commands
		r.Put("/lamp", s.handleSetLamp)
		r.Post("/lamp/toggle", s.handleToggleLamp)
		r.Put("/plug", s.handleSetPlug)
		r.Put("/threshold", s.handleSetThreshold)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	info := s.session.Info()
	clients := 0
	if s.hub != nil {
		clients = s.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"version":           s.version,
		"device_connected":  s.store.Snapshot().Connected,
		"polling":           info.Polling,
		"websocket_clients": clients,
	})
}
