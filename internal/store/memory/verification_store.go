package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
	"github.com/mcosta/payflow/internal/domain/verification"
)

// VerificationStore implements verification.Repository and
// verification.ReconciliationRepository with mutex-guarded in-memory maps.
// A record is mutated exactly once, by the verification task that owns it.
type VerificationStore struct {
	mu              sync.RWMutex
	verifications   map[uuid.UUID]*verification.Verification
	reconciliations map[uuid.UUID]*verification.Reconciliation
}

// NewVerificationStore creates an empty VerificationStore.
func NewVerificationStore() *VerificationStore {
	return &VerificationStore{
		verifications:   make(map[uuid.UUID]*verification.Verification),
		reconciliations: make(map[uuid.UUID]*verification.Reconciliation),
	}
}

// Create inserts a new verification.
func (s *VerificationStore) Create(_ context.Context, v *verification.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifications[v.ID] = v.Clone()
	return nil
}

// GetByID retrieves a copy of the verification with the given id.
func (s *VerificationStore) GetByID(_ context.Context, id uuid.UUID) (*verification.Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.verifications[id]
	if !ok {
		return nil, domainErrors.ErrVerificationNotFound
	}
	return v.Clone(), nil
}

// Update replaces the stored record with the given state.
func (s *VerificationStore) Update(_ context.Context, v *verification.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.verifications[v.ID]; !ok {
		return domainErrors.ErrVerificationNotFound
	}
	s.verifications[v.ID] = v.Clone()
	return nil
}

// ReconciliationStore is the reconciliation view of the VerificationStore.
type ReconciliationStore struct {
	parent *VerificationStore
}

// Reconciliations returns the reconciliation repository backed by this store.
func (s *VerificationStore) Reconciliations() *ReconciliationStore {
	return &ReconciliationStore{parent: s}
}

// Create inserts a new reconciliation.
func (s *ReconciliationStore) Create(_ context.Context, r *verification.Reconciliation) error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	s.parent.reconciliations[r.ID] = r.Clone()
	return nil
}

// GetByID retrieves a copy of the reconciliation with the given id.
func (s *ReconciliationStore) GetByID(_ context.Context, id uuid.UUID) (*verification.Reconciliation, error) {
	s.parent.mu.RLock()
	defer s.parent.mu.RUnlock()
	r, ok := s.parent.reconciliations[id]
	if !ok {
		return nil, domainErrors.ErrReconciliationNotFound
	}
	return r.Clone(), nil
}

// Update replaces the stored record with the given state.
func (s *ReconciliationStore) Update(_ context.Context, r *verification.Reconciliation) error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	if _, ok := s.parent.reconciliations[r.ID]; !ok {
		return domainErrors.ErrReconciliationNotFound
	}
	s.parent.reconciliations[r.ID] = r.Clone()
	return nil
}
