package events

import (
	"context"
	"time"
)

// Event types emitted by the processor.
const (
	TypePaymentProcessed = "payment.processed"
	TypePaymentFailed    = "payment.failed"
	TypePaymentRefunded  = "payment.refunded"
)

// Event is an observable fact about a transaction's lifecycle. Emission is
// fire-and-forget; it never blocks the request path.
type Event struct {
	Type          string         `json:"type"`
	TransactionID string         `json:"transaction_id"`
	OrderID       string         `json:"order_id"`
	OccurredAt    time.Time      `json:"occurred_at"`
	Data          map[string]any `json:"data,omitempty"`
}

// Publisher delivers events to whoever listens: the in-process bus, a Redis
// stream, or both.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
