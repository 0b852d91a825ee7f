package session

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for payment sessions.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
}
