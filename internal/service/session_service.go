package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
	"github.com/mcosta/payflow/internal/domain/session"
	"github.com/mcosta/payflow/internal/domain/transaction"
)

// SessionService manages multi-step payment sessions.
type SessionService struct {
	repo session.Repository
	ttl  time.Duration
	now  func() time.Time
}

// NewSessionService creates a new SessionService.
func NewSessionService(repo session.Repository, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SessionService{repo: repo, ttl: ttl, now: time.Now}
}

// Create opens a session for a payment flow that spans multiple requests.
func (s *SessionService) Create(ctx context.Context, userID, orderID string, method transaction.Method, amountCents int64, currency string) (*session.Session, error) {
	sess, err := session.New(userID, orderID, method, transaction.Amount{
		ValueCents: amountCents,
		Currency:   currency,
	}, s.ttl)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns a session by id. Open sessions past their TTL are flipped to
// abandoned lazily on read.
func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status == session.StatusOpen && sess.Expired(s.now()) {
		sess.Status = session.StatusAbandoned
		if err := s.repo.Update(ctx, sess); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// Consume marks the session as used by a charge. The caller must be the
// session's owner.
func (s *SessionService) Consume(ctx context.Context, id uuid.UUID, userID string) (*session.Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, domainErrors.ErrSessionNotFound
	}
	if err := sess.Consume(s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}
