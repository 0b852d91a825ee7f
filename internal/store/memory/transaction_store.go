package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
	"github.com/mcosta/payflow/internal/domain/transaction"
)

// TransactionStore implements transaction.Repository with a mutex-guarded
// in-memory map. Insert and lookup are safe under concurrent requests;
// mutation of a given record stays confined to the processor task that owns
// its lifecycle. Records are never deleted.
type TransactionStore struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]*transaction.Transaction
	byOrder      map[string][]uuid.UUID
}

// NewTransactionStore creates an empty TransactionStore.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		transactions: make(map[uuid.UUID]*transaction.Transaction),
		byOrder:      make(map[string][]uuid.UUID),
	}
}

// Create inserts a new transaction.
func (s *TransactionStore) Create(_ context.Context, t *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[t.ID] = t.Clone()
	s.byOrder[t.OrderID] = append(s.byOrder[t.OrderID], t.ID)
	return nil
}

// GetByID retrieves a copy of the transaction with the given id.
func (s *TransactionStore) GetByID(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil, domainErrors.ErrTransactionNotFound
	}
	return t.Clone(), nil
}

// Update replaces the stored record with the given state.
func (s *TransactionStore) Update(_ context.Context, t *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[t.ID]; !ok {
		return domainErrors.ErrTransactionNotFound
	}
	s.transactions[t.ID] = t.Clone()
	return nil
}

// ListByOrder returns all transactions referencing the given order, oldest
// first. An unknown order yields an empty slice, not an error.
func (s *TransactionStore) ListByOrder(_ context.Context, orderID string) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byOrder[orderID]
	result := make([]*transaction.Transaction, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.transactions[id].Clone())
	}
	return result, nil
}

// List returns transactions matching the filter, oldest first.
func (s *TransactionStore) List(_ context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*transaction.Transaction
	for _, t := range s.transactions {
		if filter.OrderID != "" && t.OrderID != filter.OrderID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.From != nil && t.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && t.CreatedAt.After(*filter.To) {
			continue
		}
		result = append(result, t.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}
