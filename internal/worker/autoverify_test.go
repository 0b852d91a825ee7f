package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/mcosta/payflow/internal/client"
	"github.com/mcosta/payflow/internal/domain/verification"
	"github.com/mcosta/payflow/internal/events"
	"github.com/mcosta/payflow/internal/service"
	"github.com/mcosta/payflow/internal/store/memory"
)

type fakeConsumer struct {
	acked []string
}

func (f *fakeConsumer) CreateGroup(context.Context) error             { return nil }
func (f *fakeConsumer) Read(context.Context) ([]redis.XStream, error) { return nil, nil }
func (f *fakeConsumer) Ack(_ context.Context, messageID string) error {
	f.acked = append(f.acked, messageID)
	return nil
}

type fakeClaim struct {
	acquired   bool
	acquireErr error
	released   bool
}

func (f *fakeClaim) Acquire(context.Context) (bool, error) { return f.acquired, f.acquireErr }
func (f *fakeClaim) Release(context.Context) error         { f.released = true; return nil }

// stubProcessor answers every lookup with a completed transaction.
type stubProcessor struct{}

func (stubProcessor) GetTransaction(_ context.Context, transactionID string) (*client.TransactionSnapshot, error) {
	now := time.Now()
	return &client.TransactionSnapshot{
		TransactionID: transactionID,
		Status:        "completed",
		Amount:        100.00,
		Currency:      "USD",
		OrderID:       "order-1",
		CreatedAt:     now.Add(-time.Minute),
		CompletedAt:   &now,
	}, nil
}

func (stubProcessor) ListByOrder(context.Context, string) ([]client.TransactionSnapshot, error) {
	return nil, nil
}

func (stubProcessor) ListRange(context.Context, time.Time, time.Time) ([]client.TransactionSnapshot, error) {
	return nil, nil
}

type failingStore struct{}

func (failingStore) Create(context.Context, *verification.Verification) error { return errors.New("store down") }
func (failingStore) GetByID(context.Context, uuid.UUID) (*verification.Verification, error) {
	return nil, errors.New("store down")
}
func (failingStore) Update(context.Context, *verification.Verification) error { return errors.New("store down") }

func newVerifier(t *testing.T, repo verification.Repository, c *fakeClaim) (*AutoVerifier, *fakeConsumer) {
	t.Helper()
	mem := memory.NewVerificationStore()
	if repo == nil {
		repo = mem
	}
	svc := service.NewVerificationService(
		repo,
		mem.Reconciliations(),
		stubProcessor{},
		service.VerificationConfig{ProcessingTimeout: time.Second},
		nil,
		zerolog.Nop(),
	)
	consumer := &fakeConsumer{}
	w := NewAutoVerifier(nil, consumer, svc, time.Minute, nil, zerolog.Nop())
	w.newClaim = func(string) claim { return c }
	return w, consumer
}

func processedValues(transactionID uuid.UUID) map[string]any {
	return map[string]any{
		"event_type":     events.TypePaymentProcessed,
		"transaction_id": transactionID.String(),
		"order_id":       "order-1",
	}
}

func TestAutoVerifierStartsVerificationAndKeepsClaim(t *testing.T) {
	c := &fakeClaim{acquired: true}
	w, consumer := newVerifier(t, nil, c)

	w.handle(context.Background(), "msg-1", processedValues(uuid.New()))

	assert.Equal(t, []string{"msg-1"}, consumer.acked)
	// The claim outlives the handler so the TTL dedups redeliveries while
	// the verification resolves in the background.
	assert.False(t, c.released)
}

func TestAutoVerifierSkipsAlreadyClaimedTransaction(t *testing.T) {
	c := &fakeClaim{acquired: false}
	w, consumer := newVerifier(t, nil, c)

	w.handle(context.Background(), "msg-1", processedValues(uuid.New()))

	// Someone else is verifying; the message is done, not retried.
	assert.Equal(t, []string{"msg-1"}, consumer.acked)
}

func TestAutoVerifierClaimErrorLeavesMessagePending(t *testing.T) {
	c := &fakeClaim{acquireErr: errors.New("redis down")}
	w, consumer := newVerifier(t, nil, c)

	w.handle(context.Background(), "msg-1", processedValues(uuid.New()))

	assert.Empty(t, consumer.acked)
}

func TestAutoVerifierReleasesClaimWhenStartFails(t *testing.T) {
	c := &fakeClaim{acquired: true}
	w, consumer := newVerifier(t, failingStore{}, c)

	w.handle(context.Background(), "msg-1", processedValues(uuid.New()))

	assert.True(t, c.released)
	assert.Empty(t, consumer.acked)
}

func TestAutoVerifierAcksIgnoredEventTypes(t *testing.T) {
	w, consumer := newVerifier(t, nil, &fakeClaim{acquired: true})
	claimed := false
	w.newClaim = func(string) claim {
		claimed = true
		return &fakeClaim{acquired: true}
	}

	w.handle(context.Background(), "msg-1", map[string]any{
		"event_type":     events.TypePaymentFailed,
		"transaction_id": uuid.New().String(),
	})

	assert.Equal(t, []string{"msg-1"}, consumer.acked)
	assert.False(t, claimed)
}

func TestAutoVerifierAcksMalformedTransactionID(t *testing.T) {
	w, consumer := newVerifier(t, nil, &fakeClaim{acquired: true})

	w.handle(context.Background(), "msg-1", map[string]any{
		"event_type":     events.TypePaymentProcessed,
		"transaction_id": "not-a-uuid",
	})

	assert.Equal(t, []string{"msg-1"}, consumer.acked)
}
