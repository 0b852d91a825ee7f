package providers

import (
	"context"
)

// Result is the outcome of a provider call.
type Result struct {
	Reference    string
	Status       string // "success", "failed"
	ErrorMessage string
}

// Details carries method-specific payment credentials. Raw card numbers and
// CVVs never appear in errors or logs.
type Details struct {
	CardNumber  string
	CVV         string
	ExpiryMonth int
	ExpiryYear  int

	PayPalToken string
	StripeToken string

	WalletUserID string
	AmountCents  int64
}

// ChargeRequest is the input to a provider charge.
type ChargeRequest struct {
	TransactionID string
	AmountCents   int64 // in cents
	Currency      string
	UserID        string
	Details       Details
}

// RefundRequest is the input to a provider refund.
type RefundRequest struct {
	TransactionID string
	Reference     string
	AmountCents   int64 // in cents
	Currency      string
	UserID        string
}

// Provider abstracts one payment rail. Adding a rail means adding one
// implementation; the processor's orchestration does not change.
type Provider interface {
	// Name returns the provider name, matching a transaction method.
	Name() string
	// Charge moves funds through the provider. Charges are not idempotent
	// and are never retried automatically.
	Charge(ctx context.Context, req ChargeRequest) (*Result, error)
	// Refund reverses a previous charge through the provider.
	Refund(ctx context.Context, req RefundRequest) (*Result, error)
	// ValidateDetails checks method-specific credentials, returning one
	// human-readable issue per violated rule. Empty means valid.
	ValidateDetails(ctx context.Context, details Details) []string
}
