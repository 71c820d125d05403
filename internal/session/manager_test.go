package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/medicall/agent/internal/dialogue"
	"github.com/medicall/agent/internal/store"
)

type stubReasoner struct {
	decision dialogue.InferenceDecision
}

func (s *stubReasoner) Infer(_ context.Context, _ []dialogue.Message, _ string) (dialogue.InferenceDecision, error) {
	return s.decision, nil
}

type stubOracle struct{}

func (stubOracle) Assess(_ context.Context, _ string, base dialogue.EmergencyLevel, _ []dialogue.Message, _ string) (dialogue.EscalationDecision, error) {
	return dialogue.EscalationDecision{Status: dialogue.DecisionConfirmed, FinalLevel: dialogue.LevelUrgent}, nil
}

type stubLocator struct{}

func (stubLocator) Resolve(_ context.Context, _ []dialogue.Message, _ string) (dialogue.LocationDecision, error) {
	return dialogue.LocationDecision{FinalLocationText: "Oak Street 21"}, nil
}

type stubGuide struct{}

func (stubGuide) Guide(_ context.Context, _ string, _ dialogue.EmergencyLevel, _ []string, _ []dialogue.Message) (dialogue.FirstAidDecision, error) {
	return dialogue.FirstAidDecision{Status: dialogue.DecisionInProgress, Question: "Is the patient conscious?"}, nil
}

type stubDispatcher struct{ reports int }

func (s *stubDispatcher) Send(_ context.Context, _ dialogue.Report) error {
	s.reports++
	return nil
}

type stubKB struct{}

func (stubKB) Severity(string) dialogue.EmergencyLevel { return dialogue.LevelUrgent }
func (stubKB) PromptText() string                      { return "- stroke (urgent)" }
func (stubKB) Warning(string) (string, bool)           { return "", false }

func newTestManager(reasoner dialogue.ReasoningClient) *Manager {
	controller := dialogue.NewController(dialogue.Config{
		Reasoner:   reasoner,
		Oracle:     stubOracle{},
		Locator:    stubLocator{},
		Guide:      stubGuide{},
		Dispatcher: &stubDispatcher{},
		Knowledge:  stubKB{},
	})
	return NewManager(controller, store.NewInMemoryStore(), nil, time.Minute)
}

func TestManagerCreateTurnGet(t *testing.T) {
	m := newTestManager(&stubReasoner{})
	ctx := context.Background()

	s, err := m.Create(ctx, "caller-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.ID == "" || s.Status != StatusActive || s.Stage != dialogue.StageInference {
		t.Fatalf("unexpected new session: %+v", s)
	}

	meta, res, err := m.Turn(ctx, s.ID, "hello")
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if !strings.Contains(res.Reply, "symptoms") {
		t.Fatalf("first turn reply = %q, want opening question", res.Reply)
	}
	if meta.TurnsTaken != 1 {
		t.Fatalf("TurnsTaken = %d, want 1", meta.TurnsTaken)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.CallerRef != "caller-1" {
		t.Fatalf("CallerRef = %q", got.CallerRef)
	}
}

func TestManagerTurnUnknownSession(t *testing.T) {
	m := newTestManager(&stubReasoner{})
	if _, _, err := m.Turn(context.Background(), "nope", "hello"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Turn() error = %v, want ErrNotFound", err)
	}
}

func TestManagerStatePersistsBetweenTurns(t *testing.T) {
	m := newTestManager(&stubReasoner{decision: dialogue.InferenceDecision{
		Status:           dialogue.DecisionConfirmed,
		ConfirmedDisease: "stroke",
	}})
	ctx := context.Background()
	s, err := m.Create(ctx, "caller-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, _, err := m.Turn(ctx, s.ID, ""); err != nil {
		t.Fatalf("opening turn error = %v", err)
	}
	meta, res, err := m.Turn(ctx, s.ID, "his face is drooping")
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	// Urgent confirmation chains through escalation and consent down to the
	// location question; the persisted stage must reflect that.
	if !strings.Contains(res.Reply, "location") {
		t.Fatalf("reply = %q, want location question", res.Reply)
	}
	if meta.Stage != dialogue.StageLocation {
		t.Fatalf("stage = %q, want location", meta.Stage)
	}
}

func TestManagerMarksTerminalSessionsEnded(t *testing.T) {
	m := newTestManager(&stubReasoner{decision: dialogue.InferenceDecision{Status: dialogue.DecisionNone}})
	ctx := context.Background()
	s, _ := m.Create(ctx, "caller-1")

	m.Turn(ctx, s.ID, "")
	meta, res, err := m.Turn(ctx, s.ID, "nothing makes sense")
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if !res.Terminal {
		t.Fatalf("expected terminal fallback, got %+v", res)
	}
	if meta.Status != StatusEnded {
		t.Fatalf("status = %q, want ended", meta.Status)
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount = %d, want 0", m.ActiveCount())
	}
}

func TestManagerEndAndActiveCount(t *testing.T) {
	m := newTestManager(&stubReasoner{})
	ctx := context.Background()
	a, _ := m.Create(ctx, "caller-1")
	m.Create(ctx, "caller-2")

	if got := m.ActiveCount(); got != 2 {
		t.Fatalf("ActiveCount = %d, want 2", got)
	}
	ended, err := m.End(ctx, a.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("status = %q", ended.Status)
	}
	if got := m.ActiveCount(); got != 1 {
		t.Fatalf("ActiveCount = %d, want 1", got)
	}
}

func TestManagerEndClosesDialogue(t *testing.T) {
	m := newTestManager(&stubReasoner{decision: dialogue.InferenceDecision{
		Status:           dialogue.DecisionConfirmed,
		ConfirmedDisease: "stroke",
	}})
	ctx := context.Background()
	s, _ := m.Create(ctx, "caller-1")
	if _, _, err := m.Turn(ctx, s.ID, ""); err != nil {
		t.Fatalf("opening turn error = %v", err)
	}

	ended, err := m.End(ctx, s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded || ended.Stage != dialogue.StageTerminated {
		t.Fatalf("ended meta = %+v", ended)
	}

	// The hang-up must reach the persisted dialogue state: a turn after End
	// gets the fixed closed message, never a live triage turn.
	meta, res, err := m.Turn(ctx, s.ID, "his face is drooping")
	if err != nil {
		t.Fatalf("Turn() after End error = %v", err)
	}
	if res.Status != dialogue.StatusClosed {
		t.Fatalf("status = %q, want closed", res.Status)
	}
	if !strings.Contains(res.Reply, "already ended") {
		t.Fatalf("reply = %q, want closed message", res.Reply)
	}
	if meta.Status != StatusEnded {
		t.Fatalf("meta status = %q, want ended", meta.Status)
	}
}

func TestManagerExpiresInactiveSessions(t *testing.T) {
	m := newTestManager(&stubReasoner{})
	ctx := context.Background()
	s, _ := m.Create(ctx, "caller-1")

	var expired []string
	m.SetExpireHook(func(sess *Session) {
		expired = append(expired, sess.ID)
	})

	m.mu.Lock()
	m.sessions[s.ID].meta.LastActivityAt = time.Now().UTC().Add(-time.Hour)
	m.mu.Unlock()

	m.expireInactive(ctx)

	if len(expired) != 1 || expired[0] != s.ID {
		t.Fatalf("expired = %v, want [%s]", expired, s.ID)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after expiry error = %v, want ErrNotFound", err)
	}
}
