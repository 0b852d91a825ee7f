package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/mcosta/payflow/internal/client"
	"github.com/mcosta/payflow/internal/domain/verification"
	"github.com/mcosta/payflow/internal/store/memory"
)

// fakeProcessor implements ProcessorAPI with per-call hooks.
type fakeProcessor struct {
	getTransaction func(ctx context.Context, transactionID string) (*client.TransactionSnapshot, error)
	listByOrder    func(ctx context.Context, orderID string) ([]client.TransactionSnapshot, error)
	listRange      func(ctx context.Context, from, to time.Time) ([]client.TransactionSnapshot, error)
}

func (f *fakeProcessor) GetTransaction(ctx context.Context, transactionID string) (*client.TransactionSnapshot, error) {
	return f.getTransaction(ctx, transactionID)
}

func (f *fakeProcessor) ListByOrder(ctx context.Context, orderID string) ([]client.TransactionSnapshot, error) {
	return f.listByOrder(ctx, orderID)
}

func (f *fakeProcessor) ListRange(ctx context.Context, from, to time.Time) ([]client.TransactionSnapshot, error) {
	return f.listRange(ctx, from, to)
}

func completedSnapshot(txID, orderID string, amount float64) *client.TransactionSnapshot {
	now := time.Now()
	return &client.TransactionSnapshot{
		TransactionID: txID,
		Status:        "completed",
		Amount:        amount,
		Currency:      "USD",
		OrderID:       orderID,
		UserID:        "user-1",
		CreatedAt:     now.Add(-time.Minute),
		CompletedAt:   &now,
	}
}

type verifierFixture struct {
	service *VerificationService
	store   *memory.VerificationStore
}

func newVerifierFixture(t *testing.T, processor ProcessorAPI) *verifierFixture {
	t.Helper()
	store := memory.NewVerificationStore()
	service := NewVerificationService(
		store,
		store.Reconciliations(),
		processor,
		VerificationConfig{ProcessingTimeout: 5 * time.Second, AmountToleranceCents: 1},
		nil,
		zerolog.Nop(),
	)
	return &verifierFixture{service: service, store: store}
}

func awaitTerminal(t *testing.T, f *verifierFixture, id uuid.UUID) *verification.Verification {
	t.Helper()
	var v *verification.Verification
	require.Eventually(t, func() bool {
		var err error
		v, err = f.store.GetByID(context.Background(), id)
		return err == nil && v.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)
	return v
}

func TestVerifyTransactionValid(t *testing.T) {
	txID := uuid.New()
	processor := &fakeProcessor{
		getTransaction: func(_ context.Context, id string) (*client.TransactionSnapshot, error) {
			assert.Equal(t, txID.String(), id)
			return completedSnapshot(txID.String(), "order-1", 100.00), nil
		},
	}
	f := newVerifierFixture(t, processor)

	expected := int64(10000)
	v, err := f.service.VerifyTransaction(context.Background(), txID, "order-1", &expected)
	require.NoError(t, err)
	assert.Equal(t, verification.StatusPending, v.Status)

	resolved := awaitTerminal(t, f, v.ID)
	assert.Equal(t, verification.StatusCompleted, resolved.Status)
	assert.Equal(t, verification.ResultValid, resolved.Result)
	assert.Empty(t, resolved.Issues)
}

func TestVerifyTransactionWithinTolerance(t *testing.T) {
	txID := uuid.New()
	processor := &fakeProcessor{
		getTransaction: func(context.Context, string) (*client.TransactionSnapshot, error) {
			// 99.99 against an expectation of 100.00 is a 1-cent difference.
			return completedSnapshot(txID.String(), "order-1", 99.99), nil
		},
	}
	f := newVerifierFixture(t, processor)

	expected := int64(10000)
	v, err := f.service.VerifyTransaction(context.Background(), txID, "order-1", &expected)
	require.NoError(t, err)

	resolved := awaitTerminal(t, f, v.ID)
	assert.Equal(t, verification.ResultValid, resolved.Result)
}

func TestVerifyTransactionCollectsAllIssues(t *testing.T) {
	txID := uuid.New()
	processor := &fakeProcessor{
		getTransaction: func(context.Context, string) (*client.TransactionSnapshot, error) {
			snap := completedSnapshot(txID.String(), "order-other", 90.00)
			snap.Status = "failed"
			return snap, nil
		},
	}
	f := newVerifierFixture(t, processor)

	expected := int64(10000)
	v, err := f.service.VerifyTransaction(context.Background(), txID, "order-1", &expected)
	require.NoError(t, err)

	resolved := awaitTerminal(t, f, v.ID)
	assert.Equal(t, verification.StatusFailed, resolved.Status)
	assert.Equal(t, verification.ResultInvalid, resolved.Result)
	require.Len(t, resolved.Issues, 3)
	assert.Equal(t, "transaction status is failed, not completed", resolved.Issues[0])
	assert.Equal(t, "amount mismatch: expected 10000 cents, got 9000 cents", resolved.Issues[1])
	assert.Equal(t, "order mismatch: expected order-1, got order-other", resolved.Issues[2])
}

func TestVerifyTransactionNotFoundIsInvalid(t *testing.T) {
	processor := &fakeProcessor{
		getTransaction: func(context.Context, string) (*client.TransactionSnapshot, error) {
			return nil, &client.APIError{StatusCode: http.StatusNotFound, Body: "not found"}
		},
	}
	f := newVerifierFixture(t, processor)

	v, err := f.service.VerifyTransaction(context.Background(), uuid.New(), "order-1", nil)
	require.NoError(t, err)

	resolved := awaitTerminal(t, f, v.ID)
	assert.Equal(t, verification.StatusFailed, resolved.Status)
	assert.Equal(t, verification.ResultInvalid, resolved.Result)
	assert.Equal(t, []string{"transaction not found"}, resolved.Issues)
}

func TestVerifyTransactionUpstreamFailureIsInvalid(t *testing.T) {
	processor := &fakeProcessor{
		getTransaction: func(context.Context, string) (*client.TransactionSnapshot, error) {
			return nil, &client.APIError{StatusCode: http.StatusServiceUnavailable, Body: "down"}
		},
	}
	f := newVerifierFixture(t, processor)

	v, err := f.service.VerifyTransaction(context.Background(), uuid.New(), "order-1", nil)
	require.NoError(t, err)

	resolved := awaitTerminal(t, f, v.ID)
	assert.Equal(t, verification.StatusFailed, resolved.Status)
	assert.Equal(t, verification.ResultInvalid, resolved.Result)
	assert.Equal(t, []string{"could not fetch transaction from processor"}, resolved.Issues)
}

func TestVerifyOrderPayment(t *testing.T) {
	txID := uuid.New().String()

	t.Run("completed transaction verifies the order", func(t *testing.T) {
		processor := &fakeProcessor{
			listByOrder: func(_ context.Context, orderID string) ([]client.TransactionSnapshot, error) {
				failed := *completedSnapshot(uuid.New().String(), orderID, 100.00)
				failed.Status = "failed"
				return []client.TransactionSnapshot{failed, *completedSnapshot(txID, orderID, 100.00)}, nil
			},
		}
		f := newVerifierFixture(t, processor)

		expected := int64(10000)
		result, err := f.service.VerifyOrderPayment(context.Background(), "order-1", &expected)
		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.Equal(t, txID, result.TransactionID)
		assert.Len(t, result.Transactions, 2)
	})

	t.Run("no transactions is a negative answer, not an error", func(t *testing.T) {
		processor := &fakeProcessor{
			listByOrder: func(context.Context, string) ([]client.TransactionSnapshot, error) {
				return nil, nil
			},
		}
		f := newVerifierFixture(t, processor)

		result, err := f.service.VerifyOrderPayment(context.Background(), "order-1", nil)
		require.NoError(t, err)
		assert.False(t, result.Verified)
		assert.Equal(t, "no transactions found for order", result.Reason)
	})

	t.Run("amount mismatch fails verification", func(t *testing.T) {
		processor := &fakeProcessor{
			listByOrder: func(_ context.Context, orderID string) ([]client.TransactionSnapshot, error) {
				return []client.TransactionSnapshot{*completedSnapshot(txID, orderID, 90.00)}, nil
			},
		}
		f := newVerifierFixture(t, processor)

		expected := int64(10000)
		result, err := f.service.VerifyOrderPayment(context.Background(), "order-1", &expected)
		require.NoError(t, err)
		assert.False(t, result.Verified)
		assert.Contains(t, result.Reason, "does not match expected amount")
	})

	t.Run("upstream 404 is a negative answer", func(t *testing.T) {
		processor := &fakeProcessor{
			listByOrder: func(context.Context, string) ([]client.TransactionSnapshot, error) {
				return nil, &client.APIError{StatusCode: http.StatusNotFound, Body: "not found"}
			},
		}
		f := newVerifierFixture(t, processor)

		result, err := f.service.VerifyOrderPayment(context.Background(), "order-1", nil)
		require.NoError(t, err)
		assert.False(t, result.Verified)
	})
}

func TestReconcilePayments(t *testing.T) {
	now := time.Now()
	makeRange := func() []client.TransactionSnapshot {
		ok := *completedSnapshot(uuid.New().String(), "order-1", 100.00)

		reason := "card declined"
		failedOK := *completedSnapshot(uuid.New().String(), "order-2", 50.00)
		failedOK.Status = "failed"
		failedOK.FailureReason = &reason

		// Terminal status without a completion timestamp is inconsistent.
		broken := *completedSnapshot(uuid.New().String(), "order-3", 25.00)
		broken.CompletedAt = nil

		pending := *completedSnapshot(uuid.New().String(), "order-4", 10.00)
		pending.Status = "processing"
		pending.CompletedAt = nil

		return []client.TransactionSnapshot{ok, failedOK, broken, pending}
	}

	processor := &fakeProcessor{
		listRange: func(context.Context, time.Time, time.Time) ([]client.TransactionSnapshot, error) {
			return makeRange(), nil
		},
	}
	f := newVerifierFixture(t, processor)

	rec, err := f.service.ReconcilePayments(context.Background(), now.Add(-time.Hour), now, nil)
	require.NoError(t, err)
	assert.Equal(t, verification.ReconciliationPending, rec.Status)

	var resolved *verification.Reconciliation
	require.Eventually(t, func() bool {
		var err error
		resolved, err = f.service.GetReconciliation(context.Background(), rec.ID)
		return err == nil && resolved.Status != verification.ReconciliationPending
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, verification.ReconciliationCompleted, resolved.Status)
	assert.Equal(t, 4, resolved.Total)
	assert.Equal(t, 2, resolved.Matched)
	assert.Equal(t, 2, resolved.Unmatched)
}

func TestReconcilePaymentsOrderFilter(t *testing.T) {
	now := time.Now()
	processor := &fakeProcessor{
		listRange: func(context.Context, time.Time, time.Time) ([]client.TransactionSnapshot, error) {
			return []client.TransactionSnapshot{
				*completedSnapshot(uuid.New().String(), "order-1", 100.00),
				*completedSnapshot(uuid.New().String(), "order-2", 50.00),
			}, nil
		},
	}
	f := newVerifierFixture(t, processor)

	rec, err := f.service.ReconcilePayments(context.Background(), now.Add(-time.Hour), now, []string{"order-1"})
	require.NoError(t, err)

	var resolved *verification.Reconciliation
	require.Eventually(t, func() bool {
		var err error
		resolved, err = f.service.GetReconciliation(context.Background(), rec.ID)
		return err == nil && resolved.Status != verification.ReconciliationPending
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, resolved.Total)
	assert.Equal(t, 1, resolved.Matched)
}

func TestReconcilePaymentsUpstreamFailure(t *testing.T) {
	now := time.Now()
	processor := &fakeProcessor{
		listRange: func(context.Context, time.Time, time.Time) ([]client.TransactionSnapshot, error) {
			return nil, &client.APIError{StatusCode: http.StatusServiceUnavailable, Body: "down"}
		},
	}
	f := newVerifierFixture(t, processor)

	rec, err := f.service.ReconcilePayments(context.Background(), now.Add(-time.Hour), now, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		resolved, err := f.service.GetReconciliation(context.Background(), rec.ID)
		return err == nil && resolved.Status == verification.ReconciliationError
	}, 2*time.Second, 10*time.Millisecond)
}
