package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// TransactionSnapshot is the verifier's read-only view of a transaction as
// served by the processor API. Amounts are decimal, like the wire format.
type TransactionSnapshot struct {
	TransactionID string     `json:"transactionId"`
	Status        string     `json:"status"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	OrderID       string     `json:"orderId"`
	UserID        string     `json:"userId"`
	CreatedAt     time.Time  `json:"createdAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	FailureReason *string    `json:"failureReason,omitempty"`
}

// AmountCents converts the decimal wire amount to cents.
func (s TransactionSnapshot) AmountCents() int64 {
	return int64(s.Amount*100 + 0.5)
}

type transactionEnvelope struct {
	Status string              `json:"status"`
	Data   TransactionSnapshot `json:"data"`
}

type transactionListEnvelope struct {
	Status string                `json:"status"`
	Data   []TransactionSnapshot `json:"data"`
}

// ProcessorClient is the typed client the verifier uses against the payment
// processor, built on the generic adapter.
type ProcessorClient struct {
	client *Client
}

// NewProcessorClient creates a ProcessorClient for the processor at cfg.BaseURL.
func NewProcessorClient(cfg Config) *ProcessorClient {
	return &ProcessorClient{client: New(cfg)}
}

// GetTransaction fetches a single transaction snapshot by id.
func (c *ProcessorClient) GetTransaction(ctx context.Context, transactionID string) (*TransactionSnapshot, error) {
	var env transactionEnvelope
	if err := c.client.Get(ctx, "/payments/transaction/"+url.PathEscape(transactionID), &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// ListByOrder fetches all transactions referencing an order.
func (c *ProcessorClient) ListByOrder(ctx context.Context, orderID string) ([]TransactionSnapshot, error) {
	var env transactionListEnvelope
	if err := c.client.Get(ctx, "/payments/order/"+url.PathEscape(orderID), &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ListRange fetches transactions created within [from, to] for reconciliation.
func (c *ProcessorClient) ListRange(ctx context.Context, from, to time.Time) ([]TransactionSnapshot, error) {
	var env transactionListEnvelope
	path := fmt.Sprintf("/payments/transactions?from=%s&to=%s",
		url.QueryEscape(from.Format(time.RFC3339)),
		url.QueryEscape(to.Format(time.RFC3339)))
	if err := c.client.Get(ctx, path, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}
