package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
	"github.com/mcosta/payflow/internal/domain/session"
	"github.com/mcosta/payflow/internal/domain/transaction"
	"github.com/mcosta/payflow/internal/store/memory"
)

func newSessionService(ttl time.Duration) *SessionService {
	return NewSessionService(memory.NewSessionStore(), ttl)
}

func TestSessionCreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := newSessionService(15 * time.Minute)

	sess, err := svc.Create(ctx, "user-1", "order-1", transaction.MethodCreditCard, 10000, "USD")
	require.NoError(t, err)
	assert.Equal(t, session.StatusOpen, sess.Status)

	got, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, session.StatusOpen, got.Status)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
}

func TestSessionExpiresLazilyOnGet(t *testing.T) {
	ctx := context.Background()
	svc := newSessionService(time.Minute)

	sess, err := svc.Create(ctx, "user-1", "order-1", transaction.MethodPayPal, 10000, "USD")
	require.NoError(t, err)

	svc.now = func() time.Time { return sess.ExpiresAt.Add(time.Second) }

	got, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusAbandoned, got.Status)

	// Abandoned sticks on subsequent reads.
	again, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusAbandoned, again.Status)
}

func TestSessionConsume(t *testing.T) {
	ctx := context.Background()
	svc := newSessionService(15 * time.Minute)

	sess, err := svc.Create(ctx, "user-1", "order-1", transaction.MethodStripe, 10000, "USD")
	require.NoError(t, err)

	consumed, err := svc.Consume(ctx, sess.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, session.StatusConsumed, consumed.Status)

	_, err = svc.Consume(ctx, sess.ID, "user-1")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)
}

func TestSessionConsumeWrongOwner(t *testing.T) {
	ctx := context.Background()
	svc := newSessionService(15 * time.Minute)

	sess, err := svc.Create(ctx, "user-1", "order-1", transaction.MethodStripe, 10000, "USD")
	require.NoError(t, err)

	// Ownership mismatch looks identical to a missing session.
	_, err = svc.Consume(ctx, sess.ID, "user-2")
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)

	got, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusOpen, got.Status)
}

func TestSessionConsumeExpired(t *testing.T) {
	ctx := context.Background()
	svc := newSessionService(time.Minute)

	sess, err := svc.Create(ctx, "user-1", "order-1", transaction.MethodWallet, 10000, "USD")
	require.NoError(t, err)

	svc.now = func() time.Time { return sess.ExpiresAt.Add(time.Second) }

	_, err = svc.Consume(ctx, sess.ID, "user-1")
	assert.ErrorIs(t, err, domainErrors.ErrSessionExpired)
}
