package verification

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcosta/payflow/internal/domain/errors"
)

// Status represents the verification status in the state machine.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusError     Status = "error"
)

// Result is the outcome of a completed verification. It is empty while the
// verification is pending.
type Result string

const (
	ResultValid   Result = "valid"
	ResultInvalid Result = "invalid"
	ResultError   Result = "error"
)

// Verification is an asynchronous check that a transaction reached its
// expected terminal state with expected attributes. A record is created in
// pending status and mutated exactly once by the verification task when it
// completes.
type Verification struct {
	ID             uuid.UUID
	TransactionID  uuid.UUID
	OrderID        string
	ExpectedAmount *int64 // in cents
	Status         Status
	Result         Result
	Issues         []string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// New creates a pending verification for the given transaction.
func New(transactionID uuid.UUID, orderID string, expectedAmount *int64) *Verification {
	return &Verification{
		ID:            uuid.New(),
		TransactionID: transactionID,
		OrderID:       orderID,
		ExpectedAmount: func() *int64 {
			if expectedAmount == nil {
				return nil
			}
			v := *expectedAmount
			return &v
		}(),
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// Complete resolves the verification. Issues found make the result invalid;
// a clean check makes it valid. Terminal records reject further mutation.
func (v *Verification) Complete(issues []string) error {
	if v.Status != StatusPending {
		return errors.ErrInvalidStateTransition
	}
	v.Issues = append(v.Issues, issues...)
	if len(issues) == 0 {
		v.Status = StatusCompleted
		v.Result = ResultValid
	} else {
		v.Status = StatusFailed
		v.Result = ResultInvalid
	}
	now := time.Now()
	v.CompletedAt = &now
	return nil
}

// MarkError resolves the verification as errored after an unexpected fault.
func (v *Verification) MarkError(issue string) error {
	if v.Status != StatusPending {
		return errors.ErrInvalidStateTransition
	}
	if issue != "" {
		v.Issues = append(v.Issues, issue)
	}
	v.Status = StatusError
	v.Result = ResultError
	now := time.Now()
	v.CompletedAt = &now
	return nil
}

// IsTerminal checks if the verification has been decided. Polling callers
// must treat a prolonged pending status as not yet decided, never as failure.
func (v *Verification) IsTerminal() bool {
	return v.Status != StatusPending
}

// Clone returns an independent copy of the verification.
func (v *Verification) Clone() *Verification {
	c := *v
	if v.ExpectedAmount != nil {
		a := *v.ExpectedAmount
		c.ExpectedAmount = &a
	}
	if v.CompletedAt != nil {
		t := *v.CompletedAt
		c.CompletedAt = &t
	}
	c.Issues = append([]string(nil), v.Issues...)
	return &c
}
