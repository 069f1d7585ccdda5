package statestore

import (
	"context"
	"sync"

	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/ports"
)

// MemoryStateStore is a process-local OAuth state store for development
// deployments without Redis. Acceptable only with a single orchestrator
// instance; the Redis store is the multi-instance form.
type MemoryStateStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

// NewMemoryStateStore creates an in-memory OAuth state store
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		sessions: make(map[string]*domain.Session),
	}
}

var _ ports.StateStore = (*MemoryStateStore)(nil)

// Put stores a session under its state token
func (s *MemoryStateStore) Put(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.State] = session
	return nil
}

// Consume removes and returns a session; nil when the token is unknown,
// already consumed, or expired
func (s *MemoryStateStore) Consume(_ context.Context, state string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[state]
	if !ok {
		return nil, nil
	}
	delete(s.sessions, state)

	if session.Expired() {
		return nil, nil
	}
	return session, nil
}
