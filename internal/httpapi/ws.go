package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/medicall/agent/internal/protocol"
	"github.com/medicall/agent/internal/session"
)

// handleSessionWS streams a triage dialogue over one websocket. Each
// caller_utterance runs a turn; replies and errors go back as JSON frames.
// Writes stay single-threaded because each read is answered before the
// next is consumed.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	if _, err := s.sessions.Get(sessionID); err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	defer s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		parsed, err := protocol.ParseCallerMessage(data)
		if err != nil {
			s.writeWS(conn, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_caller_message",
				Source:    "gateway",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}
		msg := parsed.(protocol.CallerUtterance)
		if msg.SessionID != sessionID {
			s.writeWS(conn, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "session_mismatch",
				Source:    "gateway",
				Retryable: false,
				Detail:    "utterance addressed to a different session",
			})
			continue
		}

		sess, res, err := s.sessions.Turn(r.Context(), sessionID, msg.Text)
		if err != nil {
			s.writeWS(conn, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      wsErrCode(err),
				Source:    "session",
				Retryable: err == session.ErrBusy,
				Detail:    err.Error(),
			})
			continue
		}

		s.writeWS(conn, protocol.AgentReply{
			Type:         protocol.TypeAgentReply,
			SessionID:    sess.ID,
			Reply:        res.Reply,
			Status:       string(res.Status),
			Stage:        string(res.Stage),
			Terminal:     res.Terminal,
			Continuation: res.Continuation,
			PrankFlag:    res.Prank,
		})

		if res.Terminal {
			s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
			s.metrics.SessionEvents.WithLabelValues("completed").Inc()
			s.writeWS(conn, protocol.SessionEvent{
				Type:      protocol.TypeSessionEvent,
				SessionID: sessionID,
				Code:      "session_terminated",
			})
			return
		}
	}
}

func (s *Server) writeWS(conn *websocket.Conn, msg any) {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	_ = conn.WriteJSON(msg)
}

func wsErrCode(err error) string {
	switch err {
	case session.ErrNotFound:
		return "session_not_found"
	case session.ErrBusy:
		return "turn_in_flight"
	default:
		return "turn_failed"
	}
}
