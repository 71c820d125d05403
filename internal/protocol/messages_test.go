package protocol

import (
	"errors"
	"testing"
)

func TestParseCallerMessageUtterance(t *testing.T) {
	raw := []byte(`{"type":"caller_utterance","session_id":"s1","text":"my father collapsed","ts_ms":123}`)
	msg, err := ParseCallerMessage(raw)
	if err != nil {
		t.Fatalf("ParseCallerMessage() error = %v", err)
	}

	utt, ok := msg.(CallerUtterance)
	if !ok {
		t.Fatalf("message type = %T, want CallerUtterance", msg)
	}
	if utt.SessionID != "s1" || utt.Text != "my father collapsed" || utt.TSMs != 123 {
		t.Fatalf("unexpected utterance: %+v", utt)
	}
}

func TestParseCallerMessageAllowsEmptyText(t *testing.T) {
	// An empty text advances a chained reply, so it must parse cleanly.
	raw := []byte(`{"type":"caller_utterance","session_id":"s1","text":""}`)
	msg, err := ParseCallerMessage(raw)
	if err != nil {
		t.Fatalf("ParseCallerMessage() error = %v", err)
	}
	if utt := msg.(CallerUtterance); utt.Text != "" {
		t.Fatalf("text = %q, want empty", utt.Text)
	}
}

func TestParseCallerMessageRequiresSessionID(t *testing.T) {
	if _, err := ParseCallerMessage([]byte(`{"type":"caller_utterance","text":"hello"}`)); err == nil {
		t.Fatalf("missing session_id should fail")
	}
}

func TestParseCallerMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseCallerMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseCallerMessageRejectsInvalidJSON(t *testing.T) {
	if _, err := ParseCallerMessage([]byte("{nope")); err == nil {
		t.Fatalf("invalid JSON should fail")
	}
}
