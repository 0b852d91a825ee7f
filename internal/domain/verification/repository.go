package verification

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for verifications.
type Repository interface {
	Create(ctx context.Context, v *Verification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Verification, error)
	Update(ctx context.Context, v *Verification) error
}

// ReconciliationRepository defines persistence operations for reconciliations.
type ReconciliationRepository interface {
	Create(ctx context.Context, r *Reconciliation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reconciliation, error)
	Update(ctx context.Context, r *Reconciliation) error
}
