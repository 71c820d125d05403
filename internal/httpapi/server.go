package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/medicall/agent/internal/config"
	"github.com/medicall/agent/internal/dialogue"
	"github.com/medicall/agent/internal/observability"
	"github.com/medicall/agent/internal/session"
)

type Server struct {
	cfg        config.Config
	sessions   *session.Manager
	controller *dialogue.Controller
	metrics    *observability.Metrics
	upgrader   websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, controller *dialogue.Controller, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:        cfg,
		sessions:   sessions,
		controller: controller,
		metrics:    metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other sites cannot drive a caller session
				// if the agent is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/triage/sessions", s.handleCreateSession)
	r.Get("/v1/triage/sessions/{id}", s.handleGetSession)
	r.Post("/v1/triage/sessions/{id}/turns", s.handleTurn)
	r.Post("/v1/triage/sessions/{id}/end", s.handleEndSession)
	r.Get("/v1/triage/sessions/ws", s.handleSessionWS)
	r.Post("/v1/triage/turn", s.handleStatelessTurn)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

type createSessionRequest struct {
	CallerRef string `json:"caller_ref"`
}

type createSessionResponse struct {
	SessionID       string `json:"session_id"`
	CallerRef       string `json:"caller_ref"`
	Status          string `json:"status"`
	Stage           string `json:"stage"`
	Greeting        string `json:"greeting"`
	InactivityTTLMS int64  `json:"inactivity_ttl_ms"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.CallerRef) == "" {
		req.CallerRef = "anonymous"
	}

	sess, err := s.sessions.Create(r.Context(), req.CallerRef)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "session_create_failed", err.Error())
		return
	}

	// The opening question comes from the first (empty) turn so the greeting
	// lands in the session transcript like any other assistant line.
	sess, res, err := s.sessions.Turn(r.Context(), sess.ID, "")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "session_create_failed", err.Error())
		return
	}

	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, createSessionResponse{
		SessionID:       sess.ID,
		CallerRef:       sess.CallerRef,
		Status:          string(sess.Status),
		Stage:           string(sess.Stage),
		Greeting:        res.Reply,
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

type turnRequest struct {
	Text string `json:"text"`
}

type turnResponse struct {
	SessionID    string `json:"session_id"`
	Reply        string `json:"reply"`
	Status       string `json:"status"`
	Stage        string `json:"stage"`
	Terminal     bool   `json:"terminal"`
	Continuation bool   `json:"continuation"`
	PrankFlag    bool   `json:"prank_flag,omitempty"`
	FailureKind  string `json:"failure_kind,omitempty"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	var req turnRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sess, res, err := s.sessions.Turn(r.Context(), id, req.Text)
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	case errors.Is(err, session.ErrBusy):
		respondError(w, http.StatusConflict, "turn_in_flight", err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "turn_failed", err.Error())
		return
	}

	if res.Terminal {
		s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
		s.metrics.SessionEvents.WithLabelValues("completed").Inc()
	}

	respondJSON(w, http.StatusOK, turnResponse{
		SessionID:    sess.ID,
		Reply:        res.Reply,
		Status:       string(res.Status),
		Stage:        string(res.Stage),
		Terminal:     res.Terminal,
		Continuation: res.Continuation,
		PrankFlag:    res.Prank,
		FailureKind:  string(res.FailureKind),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, sess)
}

type statelessTurnRequest struct {
	State *dialogue.State `json:"state"`
	Text  string          `json:"text"`
}

type statelessTurnResponse struct {
	State  *dialogue.State `json:"state"`
	Result dialogue.Result `json:"result"`
}

// handleStatelessTurn runs one turn with caller-held state. The client owns
// persistence; the returned state is the input for the next call.
func (s *Server) handleStatelessTurn(w http.ResponseWriter, r *http.Request) {
	var req statelessTurnRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	st := req.State
	if st == nil {
		st = dialogue.NewState()
	}

	started := time.Now()
	res := s.controller.Step(r.Context(), st, req.Text)
	s.metrics.ObserveTurn(string(res.Stage), string(res.Status), time.Since(started))

	respondJSON(w, http.StatusOK, statelessTurnResponse{State: st, Result: res})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
