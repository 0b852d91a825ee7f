package errors

import (
	"errors"
	"fmt"
)

var (
	// Request errors
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUnsupportedMethod = errors.New("unsupported payment method")

	// Transaction errors
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrTransactionNotCompleted = errors.New("transaction not completed")
	ErrRefundExceedsOriginal   = errors.New("refund exceeds original amount")
	ErrInvalidStateTransition  = errors.New("invalid state transition")
	ErrInvalidAmount           = errors.New("invalid amount")

	// Verification errors
	ErrVerificationNotFound   = errors.New("verification not found")
	ErrReconciliationNotFound = errors.New("reconciliation not found")

	// Wallet errors
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletNotFound    = errors.New("wallet not found")

	// Provider errors
	ErrProviderNotFound    = errors.New("payment provider not found")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrProviderRejected    = errors.New("payment rejected by provider")
	ErrProviderTimeout     = errors.New("provider request timeout")

	// Client adapter errors
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// Session errors
	ErrSessionNotFound = errors.New("payment session not found")
	ErrSessionExpired  = errors.New("payment session expired")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
