package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/mcosta/payflow/internal/client"
	"github.com/mcosta/payflow/internal/service"
	"github.com/mcosta/payflow/internal/store/memory"
)

// fakeProcessor implements service.ProcessorAPI with per-call hooks.
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

type verifierHTTPFixture struct {
	server *httptest.Server
}

func newVerifierFixture(t *testing.T, processor service.ProcessorAPI) *verifierHTTPFixture {
	t.Helper()
	store := memory.NewVerificationStore()
	svc := service.NewVerificationService(
		store,
		store.Reconciliations(),
		processor,
		service.VerificationConfig{ProcessingTimeout: 5 * time.Second, AmountToleranceCents: 1},
		nil,
		zerolog.Nop(),
	)
	router := NewVerifierRouter(VerifierRouterDeps{
		VerificationService: svc,
		ServerConfig:        testServerConfig(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &verifierHTTPFixture{server: srv}
}

func (f *verifierHTTPFixture) postJSON(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (f *verifierHTTPFixture) getJSON(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (f *verifierHTTPFixture) awaitStatus(t *testing.T, path string, pending string) map[string]any {
	t.Helper()
	var body map[string]any
	require.Eventually(t, func() bool {
		resp, err := http.Get(f.server.URL + path)
		if err != nil {
			return false
		}
		body = decodeBody(t, resp)
		return resp.StatusCode == http.StatusOK && body["status"] != pending
	}, 2*time.Second, 20*time.Millisecond)
	return body
}

func TestVerifyTransactionEndpoint(t *testing.T) {
	txID := uuid.New()
	processor := &fakeProcessor{
		getTransaction: func(context.Context, string) (*client.TransactionSnapshot, error) {
			return completedSnapshot(txID.String(), "order-1", 100.00), nil
		},
	}
	f := newVerifierFixture(t, processor)

	resp, body := f.postJSON(t, "/verify/transaction", map[string]any{
		"transactionId":  txID.String(),
		"orderId":        "order-1",
		"expectedAmount": 100.00,
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "pending", body["status"])
	verificationID := body["verificationId"].(string)
	require.NotEmpty(t, verificationID)

	resolved := f.awaitStatus(t, "/verify/status/"+verificationID, "pending")
	assert.Equal(t, "completed", resolved["status"])
	assert.Equal(t, "valid", resolved["result"])
	assert.Empty(t, resolved["issues"])
	// Issues is always an array, never null.
	assert.NotNil(t, resolved["issues"])
}

func TestVerifyTransactionEndpointInvalid(t *testing.T) {
	txID := uuid.New()
	processor := &fakeProcessor{
		getTransaction: func(context.Context, string) (*client.TransactionSnapshot, error) {
			snap := completedSnapshot(txID.String(), "order-1", 90.00)
			snap.Status = "failed"
			return snap, nil
		},
	}
	f := newVerifierFixture(t, processor)

	_, body := f.postJSON(t, "/verify/transaction", map[string]any{
		"transactionId":  txID.String(),
		"expectedAmount": 100.00,
	})
	verificationID := body["verificationId"].(string)

	resolved := f.awaitStatus(t, "/verify/status/"+verificationID, "pending")
	assert.Equal(t, "failed", resolved["status"])
	assert.Equal(t, "invalid", resolved["result"])
	assert.Len(t, resolved["issues"], 2)
}

func TestVerifyTransactionEndpointBadInput(t *testing.T) {
	f := newVerifierFixture(t, &fakeProcessor{})

	resp, body := f.postJSON(t, "/verify/transaction", map[string]any{
		"transactionId": "not-a-uuid",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["code"])

	resp, body = f.postJSON(t, "/verify/transaction", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["code"])
}

func TestGetVerificationStatusNotFound(t *testing.T) {
	f := newVerifierFixture(t, &fakeProcessor{})

	resp, body := f.getJSON(t, "/verify/status/"+uuid.New().String())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])

	resp, body = f.getJSON(t, "/verify/status/abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_id", body["code"])
}

func TestVerifyOrderEndpoint(t *testing.T) {
	txID := uuid.New().String()
	processor := &fakeProcessor{
		listByOrder: func(_ context.Context, orderID string) ([]client.TransactionSnapshot, error) {
			return []client.TransactionSnapshot{*completedSnapshot(txID, orderID, 100.00)}, nil
		},
	}
	f := newVerifierFixture(t, processor)

	resp, body := f.getJSON(t, "/verify/order/order-1?expectedAmount=100.00")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["paymentVerified"])
	assert.Equal(t, txID, body["transactionId"])
	assert.Len(t, body["transactions"], 1)
}

func TestVerifyOrderEndpointNoTransactions(t *testing.T) {
	processor := &fakeProcessor{
		listByOrder: func(context.Context, string) ([]client.TransactionSnapshot, error) {
			return nil, nil
		},
	}
	f := newVerifierFixture(t, processor)

	resp, body := f.getJSON(t, "/verify/order/order-1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["paymentVerified"])
	assert.Equal(t, "no transactions found for order", body["reason"])
}

func TestReconcileEndpoint(t *testing.T) {
	processor := &fakeProcessor{
		listRange: func(context.Context, time.Time, time.Time) ([]client.TransactionSnapshot, error) {
			return []client.TransactionSnapshot{
				*completedSnapshot(uuid.New().String(), "order-1", 100.00),
				*completedSnapshot(uuid.New().String(), "order-2", 50.00),
			}, nil
		},
	}
	f := newVerifierFixture(t, processor)

	resp, body := f.postJSON(t, "/verify/reconcile", map[string]any{
		"startDate": "2026-08-01",
		"endDate":   "2026-08-25",
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	reconciliationID := body["reconciliationId"].(string)
	require.NotEmpty(t, reconciliationID)

	resolved := f.awaitStatus(t, "/verify/reconcile/"+reconciliationID, "pending")
	assert.Equal(t, "completed", resolved["status"])
	assert.Equal(t, float64(2), resolved["total"])
	assert.Equal(t, float64(2), resolved["matched"])
	assert.Equal(t, float64(0), resolved["unmatched"])
}

func TestReconcileEndpointBadDates(t *testing.T) {
	f := newVerifierFixture(t, &fakeProcessor{})

	resp, body := f.postJSON(t, "/verify/reconcile", map[string]any{
		"startDate": "last week",
		"endDate":   "2026-08-25",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["code"])

	// End before start is rejected before any work starts.
	resp, body = f.postJSON(t, "/verify/reconcile", map[string]any{
		"startDate": "2026-08-25",
		"endDate":   "2026-08-01",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["code"])
}
