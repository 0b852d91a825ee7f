package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows transaction listings.
type ListFilter struct {
	OrderID string
	Status  *Status
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}

// Repository defines persistence operations for transactions.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	Update(ctx context.Context, t *Transaction) error
	ListByOrder(ctx context.Context, orderID string) ([]*Transaction, error)
	List(ctx context.Context, filter ListFilter) ([]*Transaction, error)
}
