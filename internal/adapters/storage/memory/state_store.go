package memory

import (
	"context"
	"sync"
	"time"

	"github.com/PabloGalante/campfire/internal/domain"
)

// StateStore is an in-memory domain.StateStore with optimistic versioning.
type StateStore struct {
	mu     sync.RWMutex
	states map[domain.SessionID]*domain.SessionState
	now    func() time.Time
}

func NewStateStore() *StateStore {
	return &StateStore{
		states: make(map[domain.SessionID]*domain.SessionState),
		now:    time.Now,
	}
}

// Get returns a copy of the stored state, or a fresh unsaved one (Version 0).
func (s *StateStore) Get(_ context.Context, id domain.SessionID) (*domain.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[id]
	if !ok {
		return domain.NewSessionState(id, s.now()), nil
	}
	return st.Clone(), nil
}

// Set stores state if its Version matches the stored one, then bumps it.
func (s *StateStore) Set(_ context.Context, state *domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if existing, ok := s.states[state.SessionID]; ok {
		current = existing.Version
	}
	if state.Version != current {
		return domain.ErrVersionConflict
	}

	state.Version++
	state.UpdatedAt = s.now()
	s.states[state.SessionID] = state.Clone()
	return nil
}

var _ domain.StateStore = (*StateStore)(nil)
