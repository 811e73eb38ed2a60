package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/nerrad567/homepanel-core/internal/activity"
	"github.com/nerrad567/homepanel-core/internal/advisor"
	"github.com/nerrad567/homepanel-core/internal/device"
	"github.com/nerrad567/homepanel-core/internal/session"
	"github.com/nerrad567/homepanel-core/internal/settings"
	"github.com/nerrad567/homepanel-core/internal/transport"
)

// StateResponse is the state snapshot as the view layer renders it.
type StateResponse struct {
	device.State
	AlarmActive bool           `json:"alarm_active"`
	Advice      advisor.Advice `json:"advice"`
}

// ConnectionResponse describes the session and whether the device answers.
type ConnectionResponse struct {
	session.Info
	Connected bool `json:"connected"`
}

// ThresholdResponse is returned by PUT /threshold.
type ThresholdResponse struct {
	Threshold settings.Result `json:"threshold"`
	State     StateResponse   `json:"state"`
}

type switchRequest struct {
	On *bool `json:"on"`
}

type thresholdRequest struct {
	Celsius *float64 `json:"celsius"`
}

type addressRequest struct {
	Address string `json:"address"`
}

// entries returns the activity log, newest first, or nil without one.
func (s *Server) entries() []activity.Entry {
	if s.activity == nil {
		return nil
	}
	return s.activity.Entries()
}

// stateView builds the response for st, evaluating advice at the current time.
func (s *Server) stateView(st device.State) StateResponse {
	return StateResponse{
		State:       st,
		AlarmActive: advisor.IsAlarmActive(st),
		Advice:      advisor.ForState(s.entries(), st, s.now()),
	}
}

func (s *Server) connectionView() ConnectionResponse {
	return ConnectionResponse{
		Info:      s.session.Info(),
		Connected: s.store.Snapshot().Connected,
	}
}

// ─── Read models ───────────────────────────────────────────────────

func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.stateView(s.store.Snapshot()))
}

func (s *Server) handleGetAdvice(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, advisor.ForState(s.entries(), s.store.Snapshot(), s.now()))
}

// handleListActivity returns the door log, newest first. ?limit=N caps it.
func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries := []activity.Entry{}
	if s.activity != nil {
		entries = s.activity.Recent(limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// ─── Connection ────────────────────────────────────────────────────

func (s *Server) handleGetConnection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.connectionView())
}

// handleConnect stores the address and starts polling. The first status
// result arrives asynchronously over the state.changed channel.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.session.Connect(req.Address); err != nil {
		if errors.Is(err, session.ErrNoAddress) {
			writeValidationError(w, "address is required")
			return
		}
		writeInternalError(w, "failed to connect")
		return
	}

	s.logger.Info("device address set via API", "address", strings.TrimSpace(req.Address))
	writeJSON(w, http.StatusOK, s.connectionView())
}

func (s *Server) handleDisconnect(w http.ResponseWriter, _ *http.Request) {
	s.session.Disconnect()
	writeJSON(w, http.StatusOK, s.connectionView())
}

// handleProbe tests an address without touching the session. An empty body
// or address probes the current one.
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if s.prober == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "probing is not available")
		return
	}

	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		address = s.session.Address()
	}
	if address == "" {
		writeValidationError(w, "address is required")
		return
	}

	res, err := transport.Probe(r.Context(), s.prober, address)
	if err != nil {
		writeDeviceUnreachable(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRefresh runs one status poll now. "dispatched" is false when a
// request was already in flight.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.session.Address() == "" {
		writeError(w, http.StatusConflict, ErrCodeNoAddress, "no device address set")
		return
	}

	dispatched := s.session.Refresh(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"dispatched": dispatched,
		"state":      s.stateView(s.store.Snapshot()),
	})
}

// ─── Commands ──────────────────────────────────────────────────────

func (s *Server) handleSetLamp(w http.ResponseWriter, r *http.Request) {
	on, ok := decodeSwitch(w, r)
	if !ok {
		return
	}
	s.sendCommand(w, r, device.SetLamp{On: on})
}

func (s *Server) handleToggleLamp(w http.ResponseWriter, r *http.Request) {
	s.sendCommand(w, r, device.ToggleLamp{})
}

func (s *Server) handleSetPlug(w http.ResponseWriter, r *http.Request) {
	on, ok := decodeSwitch(w, r)
	if !ok {
		return
	}
	s.sendCommand(w, r, device.SetPlug{On: on})
}

// handleSetThreshold applies a new software alarm threshold. A failed push
// to the device still leaves the new value applied and stored.
func (s *Server) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Celsius == nil {
		writeBadRequest(w, "celsius field is required")
		return
	}

	res, err := s.thresholds.Set(r.Context(), *req.Celsius)
	switch {
	case err == nil:
	case errors.Is(err, settings.ErrOutOfRange):
		writeValidationError(w, err.Error())
		return
	case errors.Is(err, settings.ErrPushFailed):
		s.logger.Warn("threshold applied locally but not acknowledged by device", "celsius", res.Celsius, "error", err)
		writeDeviceUnreachable(w, "threshold saved, but the device did not acknowledge it")
		return
	default:
		s.logger.Error("failed to set threshold", "celsius", *req.Celsius, "error", err)
		writeInternalError(w, "failed to save threshold")
		return
	}

	writeJSON(w, http.StatusOK, ThresholdResponse{
		Threshold: res,
		State:     s.stateView(s.store.Snapshot()),
	})
}

// sendCommand forwards cmd through the session and answers with the state
// after the device's reply has been merged.
func (s *Server) sendCommand(w http.ResponseWriter, r *http.Request, cmd device.Command) {
	if err := s.session.SendCommand(r.Context(), cmd); err != nil {
		if errors.Is(err, session.ErrNoAddress) {
			writeError(w, http.StatusConflict, ErrCodeNoAddress, "no device address set")
			return
		}
		writeDeviceUnreachable(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.stateView(s.store.Snapshot()))
}

func decodeSwitch(w http.ResponseWriter, r *http.Request) (on, ok bool) {
	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false, false
	}
	if req.On == nil {
		writeBadRequest(w, "on field is required")
		return false, false
	}
	return *req.On, true
}
