package store

import (
	"context"
	"slices"
	"sync"
)

// InMemoryStore is a simple in-process state store for local/dev use.
type InMemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[string][]byte)}
}

func (s *InMemoryStore) Save(_ context.Context, sessionID string, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[sessionID] = slices.Clone(state)
	return nil
}

func (s *InMemoryStore) Load(_ context.Context, sessionID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(state), nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sessionID)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
