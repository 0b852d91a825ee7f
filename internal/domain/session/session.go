package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcosta/payflow/internal/domain/errors"
	"github.com/mcosta/payflow/internal/domain/transaction"
)

// Status represents the session status.
type Status string

const (
	StatusOpen      Status = "open"
	StatusConsumed  Status = "consumed"
	StatusAbandoned Status = "abandoned"
)

// Session is an explicit record for a multi-step payment flow: created before
// the charge, consumed by it, expired by the clock. It follows the same
// ownership discipline as transaction and verification records instead of
// living in an ad hoc side map.
type Session struct {
	ID        uuid.UUID
	UserID    string
	OrderID   string
	Method    transaction.Method
	Amount    transaction.Amount
	Status    Status
	CreatedAt time.Time
	ExpiresAt time.Time
}

// New creates an open session with the given time-to-live.
func New(userID, orderID string, method transaction.Method, amount transaction.Amount, ttl time.Duration) (*Session, error) {
	if err := amount.Validate(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, errors.NewValidationError("user_id", "cannot be empty")
	}
	if orderID == "" {
		return nil, errors.NewValidationError("order_id", "cannot be empty")
	}
	if !method.Supported() {
		return nil, errors.ErrUnsupportedMethod
	}

	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		UserID:    userID,
		OrderID:   orderID,
		Method:    method,
		Amount:    amount,
		Status:    StatusOpen,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Expired reports whether the session's TTL has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Consume marks the session as used by a charge. Expired or already-consumed
// sessions are rejected.
func (s *Session) Consume(now time.Time) error {
	if s.Status != StatusOpen {
		return errors.ErrInvalidStateTransition
	}
	if s.Expired(now) {
		return errors.ErrSessionExpired
	}
	s.Status = StatusConsumed
	return nil
}

// Clone returns an independent copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	return &c
}
