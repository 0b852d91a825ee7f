package transaction

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcosta/payflow/internal/domain/errors"
)

// Method represents the payment rail used for a transaction.
type Method string

const (
	MethodCreditCard Method = "credit_card"
	MethodPayPal     Method = "paypal"
	MethodStripe     Method = "stripe"
	MethodWallet     Method = "wallet"
)

// Supported reports whether the method is a known payment rail.
func (m Method) Supported() bool {
	switch m {
	case MethodCreditCard, MethodPayPal, MethodStripe, MethodWallet:
		return true
	}
	return false
}

// Status represents the transaction status in the state machine.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Kind distinguishes charges from refunds.
type Kind string

const (
	KindPayment Kind = "payment"
	KindRefund  Kind = "refund"
)

// Amount represents a monetary amount in the smallest currency unit (e.g. cents).
type Amount struct {
	ValueCents int64
	Currency   string
}

// String returns a human-readable representation of the amount.
func (a Amount) String() string {
	whole := a.ValueCents / 100
	frac := a.ValueCents % 100
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%02d %s", whole, frac, a.Currency)
}

// Validate checks that the amount is valid.
func (a Amount) Validate() error {
	if a.ValueCents <= 0 {
		return errors.NewValidationError("amount", "must be greater than 0")
	}
	if len(a.Currency) != 3 {
		return errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	return nil
}

// Transaction represents a single attempted movement of funds for one order.
// Records are created in processing status and move exactly once to a terminal
// state. They are never deleted; history is retained for audit and
// verification lookups.
type Transaction struct {
	ID                    uuid.UUID
	Kind                  Kind
	Method                Method
	OrderID               string
	UserID                string
	Amount                Amount
	Status                Status
	ProviderReference     *string
	FailureReason         *string
	OriginalTransactionID *uuid.UUID
	RefundReason          string
	CreatedAt             time.Time
	CompletedAt           *time.Time
}

// New creates a payment transaction in processing status.
func New(method Method, orderID, userID string, amount Amount) (*Transaction, error) {
	if err := amount.Validate(); err != nil {
		return nil, err
	}
	if orderID == "" {
		return nil, errors.NewValidationError("order_id", "cannot be empty")
	}
	if userID == "" {
		return nil, errors.NewValidationError("user_id", "cannot be empty")
	}

	return &Transaction{
		ID:        uuid.New(),
		Kind:      KindPayment,
		Method:    method,
		OrderID:   orderID,
		UserID:    userID,
		Amount:    amount,
		Status:    StatusProcessing,
		CreatedAt: time.Now(),
	}, nil
}

// NewRefund creates a refund transaction linked to the original charge.
// A refund is only permitted against a completed transaction and must not
// exceed the original amount.
func NewRefund(original *Transaction, amountCents int64, reason string) (*Transaction, error) {
	if original.Status != StatusCompleted {
		return nil, errors.NewDomainError(
			"transaction_not_completed",
			fmt.Sprintf("cannot refund transaction in status %s", original.Status),
			errors.ErrTransactionNotCompleted,
		)
	}
	if amountCents <= 0 {
		return nil, errors.NewValidationError("amount", "must be greater than 0")
	}
	if amountCents > original.Amount.ValueCents {
		return nil, errors.ErrRefundExceedsOriginal
	}

	origID := original.ID
	return &Transaction{
		ID:                    uuid.New(),
		Kind:                  KindRefund,
		Method:                original.Method,
		OrderID:               original.OrderID,
		UserID:                original.UserID,
		Amount:                Amount{ValueCents: amountCents, Currency: original.Amount.Currency},
		Status:                StatusProcessing,
		OriginalTransactionID: &origID,
		RefundReason:          reason,
		CreatedAt:             time.Now(),
	}, nil
}

// MarkCompleted transitions the transaction out of processing. The status is
// written before CompletedAt so a reader never observes a terminal timestamp
// on a processing record.
func (t *Transaction) MarkCompleted(providerRef string) error {
	if t.Status != StatusProcessing {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(t.Status)+" to "+string(StatusCompleted),
			errors.ErrInvalidStateTransition,
		)
	}
	t.Status = StatusCompleted
	if providerRef != "" {
		t.ProviderReference = &providerRef
	}
	now := time.Now()
	t.CompletedAt = &now
	return nil
}

// MarkFailed transitions the transaction to failed with the given reason.
func (t *Transaction) MarkFailed(reason string) error {
	if t.Status != StatusProcessing {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(t.Status)+" to "+string(StatusFailed),
			errors.ErrInvalidStateTransition,
		)
	}
	t.Status = StatusFailed
	t.FailureReason = &reason
	now := time.Now()
	t.CompletedAt = &now
	return nil
}

// IsTerminal checks if the transaction is in a terminal state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// Clone returns an independent copy of the transaction. The store hands out
// clones so readers never alias the record owned by the processor.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.ProviderReference != nil {
		v := *t.ProviderReference
		c.ProviderReference = &v
	}
	if t.FailureReason != nil {
		v := *t.FailureReason
		c.FailureReason = &v
	}
	if t.OriginalTransactionID != nil {
		v := *t.OriginalTransactionID
		c.OriginalTransactionID = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	return &c
}
