package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeCallerUtterance MessageType = "caller_utterance"
	TypeAgentReply      MessageType = "agent_reply"
	TypeSessionEvent    MessageType = "session_event"
	TypeErrorEvent      MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// CallerUtterance carries one caller turn. Text may be empty: an empty
// turn is how the client advances a chained reply.
type CallerUtterance struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
	TSMs      int64       `json:"ts_ms"`
}

type AgentReply struct {
	Type         MessageType `json:"type"`
	SessionID    string      `json:"session_id"`
	Reply        string      `json:"reply"`
	Status       string      `json:"status"`
	Stage        string      `json:"stage"`
	Terminal     bool        `json:"terminal"`
	Continuation bool        `json:"continuation"`
	PrankFlag    bool        `json:"prank_flag,omitempty"`
}

type SessionEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseCallerMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeCallerUtterance:
		var msg CallerUtterance
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid caller_utterance")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
