package wallet

import "context"

// Repository defines persistence operations for wallets. Mutation of a given
// wallet must be serialized per user key; implementations expose WithWallet
// for atomic read-modify-write of the balance.
type Repository interface {
	Create(ctx context.Context, w *Wallet) error
	GetByUserID(ctx context.Context, userID string) (*Wallet, error)
	// WithWallet runs fn against the wallet for userID while holding the
	// per-wallet serialization, persisting the result if fn succeeds.
	WithWallet(ctx context.Context, userID string, fn func(w *Wallet) error) (*Wallet, error)
	AddEntry(ctx context.Context, e *Entry) error
	GetEntries(ctx context.Context, userID string, limit, offset int) ([]*Entry, error)
}
