package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/MrWong99/voxpaste/internal/history"
	"github.com/MrWong99/voxpaste/internal/observe"
	"github.com/MrWong99/voxpaste/internal/segment"
	"github.com/MrWong99/voxpaste/internal/session"
	"github.com/MrWong99/voxpaste/internal/status"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// sessionResponse is the body of every /session endpoint.
type sessionResponse struct {
	session.Info
	Phase status.Phase `json:"phase"`
	Cause string       `json:"cause,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the control API:
//
//	POST /session/start    start listening
//	POST /session/stop     stop and wait for the capture loop to exit
//	POST /session/toggle   start or stop
//	GET  /session          current session and phase
//	GET  /status/ws        WebSocket feed of status events
//	GET  /history          recent utterances (?limit=, ?q=, ?session_id=)
//	GET  /healthz, /readyz liveness and readiness
//	GET  /metrics          Prometheus exposition
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /session/start", a.handleStart)
	mux.HandleFunc("POST /session/stop", a.handleStop)
	mux.HandleFunc("POST /session/toggle", a.handleToggle)
	mux.HandleFunc("GET /session", a.handleSession)
	mux.Handle("GET /status/ws", status.Handler(a.status))
	mux.HandleFunc("GET /history", a.handleHistory)
	a.health.Register(mux)
	if a.telemetry.Handler != nil {
		mux.Handle("GET /metrics", a.telemetry.Handler)
	}
	return observe.Middleware(a.telemetry.Metrics)(mux)
}

func (a *App) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Start(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	a.writeSession(w, http.StatusOK)
}

func (a *App) handleStop(w http.ResponseWriter, _ *http.Request) {
	if err := a.sessions.Stop(); err != nil {
		writeError(w, err)
		return
	}
	a.writeSession(w, http.StatusOK)
}

func (a *App) handleToggle(w http.ResponseWriter, r *http.Request) {
	if _, err := a.sessions.Toggle(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	a.writeSession(w, http.StatusOK)
}

func (a *App) handleSession(w http.ResponseWriter, _ *http.Request) {
	a.writeSession(w, http.StatusOK)
}

func (a *App) writeSession(w http.ResponseWriter, code int) {
	last := a.status.Last()
	writeJSON(w, code, sessionResponse{
		Info:  a.sessions.Info(),
		Phase: last.Phase,
		Cause: last.Cause,
	})
}

func (a *App) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultHistoryLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	var (
		entries []history.Entry
		err     error
	)
	if text, sid := q.Get("q"), q.Get("session_id"); text != "" || sid != "" {
		entries, err = a.history.Search(r.Context(), text, history.SearchOpts{SessionID: sid, Limit: limit})
	} else {
		entries, err = a.history.Recent(r.Context(), limit)
	}
	if err != nil {
		slog.Warn("history query failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// statusFor maps session errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, segment.ErrInvalidConfig):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrDevice):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		slog.Warn("session request failed", "err", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
