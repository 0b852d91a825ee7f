package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
	"github.com/mcosta/payflow/internal/domain/wallet"
)

// WalletProvider is the internal wallet rail. There is no external call: a
// charge debits the user's wallet and a refund credits it back, each under
// the store's per-wallet serialization. The balance invariant is enforced at
// debit time, never retroactively.
type WalletProvider struct {
	wallets wallet.Repository
}

// NewWalletProvider creates a WalletProvider over the given wallet store.
func NewWalletProvider(wallets wallet.Repository) *WalletProvider {
	return &WalletProvider{wallets: wallets}
}

func (p *WalletProvider) Name() string { return "wallet" }

func (p *WalletProvider) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	userID := req.Details.WalletUserID
	if userID == "" {
		userID = req.UserID
	}

	txID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("parse transaction id: %w", err)
	}

	w, err := p.wallets.WithWallet(ctx, userID, func(w *wallet.Wallet) error {
		return w.Debit(req.AmountCents)
	})
	if err != nil {
		return &Result{Status: "failed", ErrorMessage: safeWalletError(err)}, err
	}

	entry := &wallet.Entry{
		ID:            uuid.New(),
		WalletUserID:  userID,
		TransactionID: &txID,
		Type:          wallet.EntryDebit,
		Amount:        req.AmountCents,
		BalanceAfter:  w.Balance,
		Description:   "payment debit",
		CreatedAt:     w.UpdatedAt,
	}
	if err := p.wallets.AddEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("record wallet entry: %w", err)
	}

	return &Result{
		Reference: fmt.Sprintf("wallet_txn_%s", uuid.New().String()[:8]),
		Status:    "success",
	}, nil
}

func (p *WalletProvider) Refund(ctx context.Context, req RefundRequest) (*Result, error) {
	txID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("parse transaction id: %w", err)
	}

	w, err := p.wallets.WithWallet(ctx, req.UserID, func(w *wallet.Wallet) error {
		return w.Credit(req.AmountCents)
	})
	if err != nil {
		return &Result{Status: "failed", ErrorMessage: safeWalletError(err)}, err
	}

	entry := &wallet.Entry{
		ID:            uuid.New(),
		WalletUserID:  req.UserID,
		TransactionID: &txID,
		Type:          wallet.EntryRefund,
		Amount:        req.AmountCents,
		BalanceAfter:  w.Balance,
		Description:   "payment refund",
		CreatedAt:     w.UpdatedAt,
	}
	if err := p.wallets.AddEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("record wallet entry: %w", err)
	}

	return &Result{
		Reference: fmt.Sprintf("wallet_refund_%s", uuid.New().String()[:8]),
		Status:    "success",
	}, nil
}

// ValidateDetails checks the wallet exists and, when an amount is given, that
// the balance covers it. No external validation applies.
func (p *WalletProvider) ValidateDetails(ctx context.Context, details Details) []string {
	if details.WalletUserID == "" {
		return []string{"wallet user id is required"}
	}
	w, err := p.wallets.GetByUserID(ctx, details.WalletUserID)
	if err != nil {
		return []string{"wallet not found"}
	}
	if details.AmountCents > 0 && w.Balance < details.AmountCents {
		return []string{"insufficient funds"}
	}
	return nil
}

func safeWalletError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domainErrors.ErrInsufficientFunds):
		return "insufficient funds"
	default:
		return "wallet operation failed"
	}
}
