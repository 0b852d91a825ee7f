package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcosta/payflow/internal/domain/errors"
)

// EntryType classifies a wallet ledger entry.
type EntryType string

const (
	EntryDebit  EntryType = "debit"
	EntryCredit EntryType = "credit"
	EntryRefund EntryType = "refund"
)

// Entry is one line of the append-only wallet log.
type Entry struct {
	ID            uuid.UUID
	WalletUserID  string
	TransactionID *uuid.UUID
	Type          EntryType
	Amount        int64 // in cents
	BalanceAfter  int64
	Description   string
	CreatedAt     time.Time
}

// Wallet holds a per-user balance with an append-only entry log. The balance
// never goes below zero; a debit that would is rejected and leaves the
// balance unchanged.
type Wallet struct {
	UserID    string
	Balance   int64 // in cents
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a wallet for the given user.
func New(userID string, initialBalance int64, currency string) (*Wallet, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user_id", "cannot be empty")
	}
	if initialBalance < 0 {
		return nil, errors.NewValidationError("initial_balance", "cannot be negative")
	}
	if len(currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}

	now := time.Now()
	return &Wallet{
		UserID:    userID,
		Balance:   initialBalance,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Debit removes funds from the wallet.
func (w *Wallet) Debit(amount int64) error {
	if amount <= 0 {
		return errors.NewValidationError("amount", "must be greater than 0")
	}
	if w.Balance < amount {
		return errors.ErrInsufficientFunds
	}
	w.Balance -= amount
	w.UpdatedAt = time.Now()
	return nil
}

// Credit adds funds to the wallet.
func (w *Wallet) Credit(amount int64) error {
	if amount <= 0 {
		return errors.NewValidationError("amount", "must be greater than 0")
	}
	w.Balance += amount
	w.UpdatedAt = time.Now()
	return nil
}

// Clone returns an independent copy of the wallet.
func (w *Wallet) Clone() *Wallet {
	c := *w
	return &c
}
