package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
	"github.com/mcosta/payflow/internal/domain/session"
)

// SessionStore implements session.Repository with a mutex-guarded map.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session.Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uuid.UUID]*session.Session)}
}

// Create inserts a new session.
func (s *SessionStore) Create(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// GetByID retrieves a copy of the session with the given id.
func (s *SessionStore) GetByID(_ context.Context, id uuid.UUID) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domainErrors.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Update replaces the stored record with the given state.
func (s *SessionStore) Update(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return domainErrors.ErrSessionNotFound
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}
