package controller

import (
	"time"

	"github.com/mcosta/payflow/internal/client"
	"github.com/mcosta/payflow/internal/domain/session"
	"github.com/mcosta/payflow/internal/domain/transaction"
	"github.com/mcosta/payflow/internal/domain/verification"
	"github.com/mcosta/payflow/internal/providers"
)

// --- Request DTOs ---
// DTOs carry HTTP/JSON concerns (float64 for money, string ids, validation
// tags). Controllers convert to service inputs before calling business logic.

// PaymentDetailsRequest holds method-specific credentials. These fields are
// consumed for validation and charging and never echoed back in responses.
type PaymentDetailsRequest struct {
	CardNumber   string `json:"cardNumber,omitempty"`
	CVV          string `json:"cvv,omitempty"`
	ExpiryMonth  int    `json:"expiryMonth,omitempty"`
	ExpiryYear   int    `json:"expiryYear,omitempty"`
	PayPalToken  string `json:"paypalToken,omitempty"`
	StripeToken  string `json:"stripeToken,omitempty"`
	WalletUserID string `json:"walletUserId,omitempty"`
}

func (d PaymentDetailsRequest) toDomain() providers.Details {
	return providers.Details{
		CardNumber:   d.CardNumber,
		CVV:          d.CVV,
		ExpiryMonth:  d.ExpiryMonth,
		ExpiryYear:   d.ExpiryYear,
		PayPalToken:  d.PayPalToken,
		StripeToken:  d.StripeToken,
		WalletUserID: d.WalletUserID,
	}
}

// ProcessPaymentRequest holds the input for processing a payment.
type ProcessPaymentRequest struct {
	Amount         float64               `json:"amount" validate:"required,gt=0"`
	Currency       string                `json:"currency" validate:"required,len=3"`
	PaymentMethod  string                `json:"paymentMethod" validate:"required"`
	UserID         string                `json:"userId" validate:"required"`
	OrderID        string                `json:"orderId" validate:"required"`
	SessionID      *string               `json:"sessionId,omitempty"`
	PaymentDetails PaymentDetailsRequest `json:"paymentDetails"`
}

// ValidateDetailsRequest holds the input for validating payment details.
type ValidateDetailsRequest struct {
	PaymentMethod  string                `json:"paymentMethod" validate:"required"`
	PaymentDetails PaymentDetailsRequest `json:"paymentDetails"`
}

// RefundPaymentRequest holds the input for refunding a charge. A zero amount
// means a full refund.
type RefundPaymentRequest struct {
	TransactionID string  `json:"transactionId" validate:"required,uuid"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	Reason        string  `json:"reason"`
}

// VerifyTransactionRequest holds the input for an asynchronous verification.
type VerifyTransactionRequest struct {
	TransactionID  string   `json:"transactionId" validate:"required,uuid"`
	OrderID        *string  `json:"orderId,omitempty"`
	ExpectedAmount *float64 `json:"expectedAmount,omitempty"`
}

// ReconcileRequest holds the input for a batch reconciliation sweep.
type ReconcileRequest struct {
	StartDate string   `json:"startDate" validate:"required"`
	EndDate   string   `json:"endDate" validate:"required"`
	OrderIDs  []string `json:"orderIds,omitempty"`
}

// CreateSessionRequest holds the input for opening a payment session.
type CreateSessionRequest struct {
	UserID        string  `json:"userId" validate:"required"`
	OrderID       string  `json:"orderId" validate:"required"`
	PaymentMethod string  `json:"paymentMethod" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Currency      string  `json:"currency" validate:"required,len=3"`
}

// --- Response DTOs ---

// TransactionData represents a transaction in API responses.
type TransactionData struct {
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

// ProcessPaymentResponse is the result of a process request.
type ProcessPaymentResponse struct {
	Status        string           `json:"status"`
	TransactionID string           `json:"transactionId"`
	Message       string           `json:"message"`
	Data          *TransactionData `json:"data,omitempty"`
}

// ValidateDetailsResponse is the result of a validate request.
type ValidateDetailsResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// RefundPaymentResponse is the result of a refund request.
type RefundPaymentResponse struct {
	Status   string `json:"status"`
	RefundID string `json:"refundId"`
	Message  string `json:"message"`
}

// DataResponse is the generic success envelope for reads.
type DataResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// VerifyAcceptedResponse acknowledges an accepted verification request.
type VerifyAcceptedResponse struct {
	Status         string `json:"status"`
	VerificationID string `json:"verificationId"`
}

// VerificationResponse represents a verification record snapshot.
type VerificationResponse struct {
	VerificationID string     `json:"verificationId"`
	TransactionID  string     `json:"transactionId"`
	OrderID        string     `json:"orderId,omitempty"`
	Status         string     `json:"status"`
	Result         string     `json:"result,omitempty"`
	Issues         []string   `json:"issues"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// VerifyOrderResponse answers whether an order has a verified payment.
type VerifyOrderResponse struct {
	OrderID         string            `json:"orderId"`
	PaymentVerified bool              `json:"paymentVerified"`
	TransactionID   string            `json:"transactionId,omitempty"`
	Reason          string            `json:"reason,omitempty"`
	Transactions    []TransactionData `json:"transactions"`
}

// ReconcileAcceptedResponse acknowledges an accepted reconciliation request.
type ReconcileAcceptedResponse struct {
	Status           string `json:"status"`
	ReconciliationID string `json:"reconciliationId"`
}

// ReconciliationResponse represents a reconciliation sweep snapshot.
type ReconciliationResponse struct {
	ReconciliationID string     `json:"reconciliationId"`
	StartDate        time.Time  `json:"startDate"`
	EndDate          time.Time  `json:"endDate"`
	Status           string     `json:"status"`
	Total            int        `json:"total"`
	Matched          int        `json:"matched"`
	Unmatched        int        `json:"unmatched"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

// SessionResponse represents a payment session.
type SessionResponse struct {
	SessionID     string    `json:"sessionId"`
	UserID        string    `json:"userId"`
	OrderID       string    `json:"orderId"`
	PaymentMethod string    `json:"paymentMethod"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromTransaction converts a domain transaction to API response.
func FromTransaction(t *transaction.Transaction) *TransactionData {
	return &TransactionData{
		TransactionID: t.ID.String(),
		Status:        string(t.Status),
		Amount:        centsToFloat(t.Amount.ValueCents),
		Currency:      t.Amount.Currency,
		OrderID:       t.OrderID,
		UserID:        t.UserID,
		CreatedAt:     t.CreatedAt,
		CompletedAt:   t.CompletedAt,
		FailureReason: t.FailureReason,
	}
}

// FromSnapshot converts a processor snapshot to API response.
func FromSnapshot(s client.TransactionSnapshot) TransactionData {
	return TransactionData{
		TransactionID: s.TransactionID,
		Status:        s.Status,
		Amount:        s.Amount,
		Currency:      s.Currency,
		OrderID:       s.OrderID,
		UserID:        s.UserID,
		CreatedAt:     s.CreatedAt,
		CompletedAt:   s.CompletedAt,
		FailureReason: s.FailureReason,
	}
}

// FromVerification converts a domain verification to API response.
func FromVerification(v *verification.Verification) *VerificationResponse {
	issues := v.Issues
	if issues == nil {
		issues = []string{}
	}
	return &VerificationResponse{
		VerificationID: v.ID.String(),
		TransactionID:  v.TransactionID.String(),
		OrderID:        v.OrderID,
		Status:         string(v.Status),
		Result:         string(v.Result),
		Issues:         issues,
		CreatedAt:      v.CreatedAt,
		CompletedAt:    v.CompletedAt,
	}
}

// FromReconciliation converts a domain reconciliation to API response.
func FromReconciliation(r *verification.Reconciliation) *ReconciliationResponse {
	return &ReconciliationResponse{
		ReconciliationID: r.ID.String(),
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		Status:           string(r.Status),
		Total:            r.Total,
		Matched:          r.Matched,
		Unmatched:        r.Unmatched,
		CreatedAt:        r.CreatedAt,
		CompletedAt:      r.CompletedAt,
	}
}

// FromSession converts a domain session to API response.
func FromSession(s *session.Session) *SessionResponse {
	return &SessionResponse{
		SessionID:     s.ID.String(),
		UserID:        s.UserID,
		OrderID:       s.OrderID,
		PaymentMethod: string(s.Method),
		Amount:        centsToFloat(s.Amount.ValueCents),
		Currency:      s.Amount.Currency,
		Status:        string(s.Status),
		CreatedAt:     s.CreatedAt,
		ExpiresAt:     s.ExpiresAt,
	}
}

// floatToCents converts a decimal amount to cents.
func floatToCents(f float64) int64 {
	if f < 0 {
		return -int64(-f*100 + 0.5)
	}
	return int64(f*100 + 0.5)
}

// centsToFloat converts cents to a decimal amount.
func centsToFloat(cents int64) float64 {
	return float64(cents) / 100.0
}
