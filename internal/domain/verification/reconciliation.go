package verification

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcosta/payflow/internal/domain/errors"
)

// ReconciliationStatus represents the state of a batch sweep.
type ReconciliationStatus string

const (
	ReconciliationPending   ReconciliationStatus = "pending"
	ReconciliationCompleted ReconciliationStatus = "completed"
	ReconciliationError     ReconciliationStatus = "error"
)

// Reconciliation is a batch-level comparison of transactions over a date
// range, intended for periodic settlement rather than request-path use.
type Reconciliation struct {
	ID          uuid.UUID
	StartDate   time.Time
	EndDate     time.Time
	OrderIDs    []string
	Status      ReconciliationStatus
	Total       int
	Matched     int
	Unmatched   int
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// NewReconciliation creates a pending reconciliation sweep.
func NewReconciliation(start, end time.Time, orderIDs []string) (*Reconciliation, error) {
	if end.Before(start) {
		return nil, errors.NewValidationError("end_date", "must not be before start_date")
	}
	return &Reconciliation{
		ID:        uuid.New(),
		StartDate: start,
		EndDate:   end,
		OrderIDs:  append([]string(nil), orderIDs...),
		Status:    ReconciliationPending,
		CreatedAt: time.Now(),
	}, nil
}

// Complete records the aggregate counts and resolves the sweep.
func (r *Reconciliation) Complete(total, matched, unmatched int) error {
	if r.Status != ReconciliationPending {
		return errors.ErrInvalidStateTransition
	}
	r.Total = total
	r.Matched = matched
	r.Unmatched = unmatched
	r.Status = ReconciliationCompleted
	now := time.Now()
	r.CompletedAt = &now
	return nil
}

// MarkError resolves the sweep as errored.
func (r *Reconciliation) MarkError() error {
	if r.Status != ReconciliationPending {
		return errors.ErrInvalidStateTransition
	}
	r.Status = ReconciliationError
	now := time.Now()
	r.CompletedAt = &now
	return nil
}

// Clone returns an independent copy of the reconciliation.
func (r *Reconciliation) Clone() *Reconciliation {
	c := *r
	c.OrderIDs = append([]string(nil), r.OrderIDs...)
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
