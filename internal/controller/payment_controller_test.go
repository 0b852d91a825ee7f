package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/mcosta/payflow/internal/domain/wallet"
	"github.com/mcosta/payflow/internal/infrastructure/config"
	"github.com/mcosta/payflow/internal/providers"
	"github.com/mcosta/payflow/internal/service"
	"github.com/mcosta/payflow/internal/store/memory"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit: config.RateLimitConfig{Max: 1000, Window: time.Minute},
	}
}

type processorFixture struct {
	server  *httptest.Server
	wallets *memory.WalletStore
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	txStore := memory.NewTransactionStore()
	wallets := memory.NewWalletStore()
	gateway := providers.NewStaticGateway("pf")
	factory := providers.NewFactory(
		providers.NewCardProvider(gateway, providers.CardConfig{}),
		providers.NewPayPalProvider(gateway),
		providers.NewStripeProvider(gateway, providers.CardConfig{}),
		providers.NewWalletProvider(wallets),
	)
	paymentSvc := service.NewPaymentService(txStore, factory, nil, nil, zerolog.Nop())
	sessionSvc := service.NewSessionService(memory.NewSessionStore(), 15*time.Minute)

	router := NewProcessorRouter(ProcessorRouterDeps{
		PaymentService: paymentSvc,
		SessionService: sessionSvc,
		ServerConfig:   testServerConfig(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &processorFixture{server: srv, wallets: wallets}
}

func (f *processorFixture) postJSON(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (f *processorFixture) getJSON(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func processPaymentBody() map[string]any {
	return map[string]any{
		"amount":        100.00,
		"currency":      "USD",
		"paymentMethod": "credit_card",
		"userId":        "user-1",
		"orderId":       "order-1",
		"paymentDetails": map[string]any{
			"cardNumber":  "4111111111111111",
			"cvv":         "123",
			"expiryMonth": 12,
			"expiryYear":  2030,
		},
	}
}

func TestProcessEndpointSuccess(t *testing.T) {
	f := newProcessorFixture(t)

	resp, body := f.postJSON(t, "/payments/process", processPaymentBody())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])
	assert.NotEmpty(t, body["transactionId"])

	data := body["data"].(map[string]any)
	assert.Equal(t, "completed", data["status"])
	assert.Equal(t, 100.00, data["amount"])
	assert.Equal(t, "order-1", data["orderId"])
}

func TestProcessEndpointInvalidCard(t *testing.T) {
	f := newProcessorFixture(t)

	payload := processPaymentBody()
	payload["paymentDetails"].(map[string]any)["cardNumber"] = "4111111111111112"

	resp, body := f.postJSON(t, "/payments/process", payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "failed", body["status"])
	assert.Contains(t, body["message"], "checksum")

	// The card number never appears anywhere in the response.
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "4111111111111112")
}

func TestProcessEndpointValidationError(t *testing.T) {
	f := newProcessorFixture(t)

	payload := processPaymentBody()
	delete(payload, "orderId")

	resp, body := f.postJSON(t, "/payments/process", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["code"])
}

func TestProcessEndpointMalformedJSON(t *testing.T) {
	f := newProcessorFixture(t)

	resp, err := http.Post(f.server.URL+"/payments/process", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["code"])
}

func TestValidateEndpoint(t *testing.T) {
	f := newProcessorFixture(t)

	resp, body := f.postJSON(t, "/payments/validate", map[string]any{
		"paymentMethod": "credit_card",
		"paymentDetails": map[string]any{
			"cardNumber":  "4111111111111111",
			"cvv":         "123",
			"expiryMonth": 12,
			"expiryYear":  2030,
		},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])
	assert.Empty(t, body["errors"])

	resp, body = f.postJSON(t, "/payments/validate", map[string]any{
		"paymentMethod": "credit_card",
		"paymentDetails": map[string]any{
			"cardNumber": "123",
			"cvv":        "12",
		},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["valid"])
	assert.NotEmpty(t, body["errors"])

	resp, body = f.postJSON(t, "/payments/validate", map[string]any{
		"paymentMethod":  "bitcoin",
		"paymentDetails": map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unsupported_method", body["code"])
}

func TestGetTransactionEndpoint(t *testing.T) {
	f := newProcessorFixture(t)

	_, created := f.postJSON(t, "/payments/process", processPaymentBody())
	txID := created["transactionId"].(string)

	resp, body := f.getJSON(t, "/payments/transaction/"+txID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])
	data := body["data"].(map[string]any)
	assert.Equal(t, txID, data["transactionId"])

	resp, body = f.getJSON(t, "/payments/transaction/"+uuid.New().String())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])

	resp, body = f.getJSON(t, "/payments/transaction/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_id", body["code"])
}

func TestListByOrderEndpoint(t *testing.T) {
	f := newProcessorFixture(t)

	f.postJSON(t, "/payments/process", processPaymentBody())
	f.postJSON(t, "/payments/process", processPaymentBody())

	resp, body := f.getJSON(t, "/payments/order/order-1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 2)

	resp, body = f.getJSON(t, "/payments/order/unknown-order")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["data"])
}

func TestListRangeEndpoint(t *testing.T) {
	f := newProcessorFixture(t)
	f.postJSON(t, "/payments/process", processPaymentBody())

	from := time.Now().Add(-time.Hour).Format(time.RFC3339)
	to := time.Now().Add(time.Hour).Format(time.RFC3339)
	resp, body := f.getJSON(t, fmt.Sprintf("/payments/transactions?from=%s&to=%s", from, to))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)

	resp, body = f.getJSON(t, "/payments/transactions?from=yesterday&to=today")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["code"])
}

func TestRefundEndpoint(t *testing.T) {
	f := newProcessorFixture(t)

	_, created := f.postJSON(t, "/payments/process", processPaymentBody())
	txID := created["transactionId"].(string)

	resp, body := f.postJSON(t, "/payments/refund", map[string]any{
		"transactionId": txID,
		"amount":        50.00,
		"reason":        "partial return",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])
	assert.NotEmpty(t, body["refundId"])

	resp, body = f.postJSON(t, "/payments/refund", map[string]any{
		"transactionId": txID,
		"amount":        200.00,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "refund_exceeds_original", body["code"])

	resp, body = f.postJSON(t, "/payments/refund", map[string]any{
		"transactionId": uuid.New().String(),
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])
}

func TestSessionEndpoints(t *testing.T) {
	f := newProcessorFixture(t)

	resp, created := f.postJSON(t, "/payments/session", map[string]any{
		"userId":        "user-1",
		"orderId":       "order-1",
		"paymentMethod": "credit_card",
		"amount":        100.00,
		"currency":      "USD",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionID := created["sessionId"].(string)
	assert.Equal(t, "open", created["status"])

	resp, body := f.getJSON(t, "/payments/session/"+sessionID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "open", body["status"])

	// Process with the session; the session is consumed by the charge.
	payload := processPaymentBody()
	payload["sessionId"] = sessionID
	resp, body = f.postJSON(t, "/payments/process", payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])

	_, body = f.getJSON(t, "/payments/session/"+sessionID)
	assert.Equal(t, "consumed", body["status"])

	// A consumed session cannot back a second charge.
	resp, body = f.postJSON(t, "/payments/process", payload)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_state_transition", body["code"])
}

func TestSessionWrongOwner(t *testing.T) {
	f := newProcessorFixture(t)

	_, created := f.postJSON(t, "/payments/session", map[string]any{
		"userId":        "user-2",
		"orderId":       "order-1",
		"paymentMethod": "credit_card",
		"amount":        100.00,
		"currency":      "USD",
	})
	sessionID := created["sessionId"].(string)

	payload := processPaymentBody()
	payload["sessionId"] = sessionID
	resp, body := f.postJSON(t, "/payments/process", payload)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])
}

func TestWalletInsufficientFundsEndpoint(t *testing.T) {
	f := newProcessorFixture(t)

	w, err := wallet.New("user-1", 1000, "USD")
	require.NoError(t, err)
	require.NoError(t, f.wallets.Create(t.Context(), w))

	payload := map[string]any{
		"amount":        100.00,
		"currency":      "USD",
		"paymentMethod": "wallet",
		"userId":        "user-1",
		"orderId":       "order-1",
		"paymentDetails": map[string]any{
			"walletUserId": "user-1",
		},
	}
	resp, body := f.postJSON(t, "/payments/process", payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "failed", body["status"])
	assert.Contains(t, body["message"], "insufficient funds")
}

func TestHealthEndpoint(t *testing.T) {
	f := newProcessorFixture(t)

	resp, body := f.getJSON(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "payment-processor", body["service"])
}
