// Package session is the transport-side adapter around the dialogue
// controller: it keys sessions by id, serializes turns per session, and
// round-trips the state blob through the configured store between turns.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medicall/agent/internal/dialogue"
	"github.com/medicall/agent/internal/observability"
	"github.com/medicall/agent/internal/store"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrBusy is returned when a turn arrives while another turn for the
	// same session is still in flight. One in-flight turn per session.
	ErrBusy = errors.New("session has a turn in flight")
)

// Session is the transport-level view of one call. The dialogue state
// itself lives in the store, not here.
type Session struct {
	ID             string         `json:"session_id"`
	CallerRef      string         `json:"caller_ref"`
	Status         Status         `json:"status"`
	Stage          dialogue.Stage `json:"stage"`
	TurnsTaken     int            `json:"turns_taken"`
	PrankFlags     int            `json:"prank_flags"`
	StartedAt      time.Time      `json:"started_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
}

type entry struct {
	meta   *Session
	turnMu chan struct{} // capacity 1: the per-session turn slot
}

// Manager owns session lifecycle and turn execution. Distinct sessions run
// fully concurrently; turns within one session are serialized.
type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*entry
	controller        *dialogue.Controller
	store             store.Store
	metrics           *observability.Metrics
	inactivityTimeout time.Duration
	onExpire          func(*Session)
}

func NewManager(controller *dialogue.Controller, st store.Store, metrics *observability.Metrics, inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 10 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*entry),
		controller:        controller,
		store:             st,
		metrics:           metrics,
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Create opens a new session and persists its initial dialogue state.
func (m *Manager) Create(ctx context.Context, callerRef string) (*Session, error) {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		CallerRef:      callerRef,
		Status:         StatusActive,
		Stage:          dialogue.StageInference,
		StartedAt:      now,
		LastActivityAt: now,
	}

	blob, err := json.Marshal(dialogue.NewState())
	if err != nil {
		return nil, fmt.Errorf("encode initial state: %w", err)
	}
	if err := m.store.Save(ctx, s.ID, blob); err != nil {
		return nil, fmt.Errorf("persist initial state: %w", err)
	}

	e := &entry{meta: s, turnMu: make(chan struct{}, 1)}

	m.mu.Lock()
	m.sessions[s.ID] = e
	m.mu.Unlock()
	return clone(s), nil
}

// Turn runs one caller utterance through the controller and persists the
// resulting state. Concurrent turns for the same session are rejected.
func (m *Manager) Turn(ctx context.Context, sessionID, utterance string) (*Session, dialogue.Result, error) {
	m.mu.RLock()
	e, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, dialogue.Result{}, ErrNotFound
	}

	select {
	case e.turnMu <- struct{}{}:
		defer func() { <-e.turnMu }()
	default:
		return nil, dialogue.Result{}, ErrBusy
	}

	blob, err := m.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dialogue.Result{}, ErrNotFound
		}
		return nil, dialogue.Result{}, fmt.Errorf("load session state: %w", err)
	}

	var st dialogue.State
	if err := json.Unmarshal(blob, &st); err != nil {
		return nil, dialogue.Result{}, fmt.Errorf("decode session state: %w", err)
	}

	started := time.Now()
	res := m.controller.Step(ctx, &st, utterance)
	m.recordTurn(res, time.Since(started))

	if res.Status != dialogue.StatusClosed {
		next, err := json.Marshal(&st)
		if err != nil {
			return nil, dialogue.Result{}, fmt.Errorf("encode session state: %w", err)
		}
		if err := m.store.Save(ctx, sessionID, next); err != nil {
			return nil, dialogue.Result{}, fmt.Errorf("persist session state: %w", err)
		}
	}

	m.mu.Lock()
	e.meta.TurnsTaken++
	e.meta.Stage = st.CurrentStage()
	e.meta.LastActivityAt = time.Now().UTC()
	if res.Prank {
		e.meta.PrankFlags++
	}
	if res.Terminal {
		e.meta.Status = StatusEnded
	}
	meta := clone(e.meta)
	m.mu.Unlock()

	return meta, res, nil
}

func (m *Manager) recordTurn(res dialogue.Result, elapsed time.Duration) {
	if m.metrics == nil {
		return
	}
	m.metrics.ObserveTurn(string(res.Stage), string(res.Status), elapsed)
	if res.Prank {
		m.metrics.PrankCalls.Inc()
		m.metrics.ObserveIndicator("prank_flagged")
	}
	if res.Status == dialogue.StatusError {
		m.metrics.ClientFailures.WithLabelValues(string(res.Stage), string(res.FailureKind)).Inc()
	}
	if res.Stage == dialogue.StageDispatch && res.Status == dialogue.StatusConfirmed {
		m.metrics.ReportsDispatched.Inc()
		m.metrics.ObserveIndicator("report_dispatched")
	}
	if res.Status == dialogue.StatusFallback {
		m.metrics.ObserveIndicator("inference_fallback")
	}
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(e.meta), nil
}

// End hangs up a session: the persisted dialogue state is deactivated so a
// later turn gets the fixed closed message, and the metadata is marked ended.
// The state stays in the store until expiry.
func (m *Manager) End(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	e, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	blob, err := m.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session state: %w", err)
	}
	var st dialogue.State
	if err := json.Unmarshal(blob, &st); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	if st.Active {
		st.Active = false
		next, err := json.Marshal(&st)
		if err != nil {
			return nil, fmt.Errorf("encode session state: %w", err)
		}
		if err := m.store.Save(ctx, sessionID, next); err != nil {
			return nil, fmt.Errorf("persist session state: %w", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e.meta.Status = StatusEnded
	e.meta.Stage = dialogue.StageTerminated
	e.meta.LastActivityAt = time.Now().UTC()
	return clone(e.meta), nil
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, e := range m.sessions {
		if e.meta.Status == StatusActive {
			count++
		}
	}
	return count
}

// StartJanitor expires inactive sessions and deletes their stored state.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive(ctx)
			}
		}
	}()
}

func (m *Manager) expireInactive(ctx context.Context) {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, e := range m.sessions {
		if now.Sub(e.meta.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		expired = append(expired, clone(e.meta))
		delete(m.sessions, id)
	}
	hook := m.onExpire
	m.mu.Unlock()

	for _, s := range expired {
		_ = m.store.Delete(ctx, s.ID)
		if hook != nil {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
