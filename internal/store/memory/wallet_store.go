package memory

import (
	"context"
	"sync"

	domainErrors "github.com/mcosta/payflow/internal/domain/errors"
	"github.com/mcosta/payflow/internal/domain/wallet"
)

// WalletStore implements wallet.Repository. Balance mutation is serialized
// per user key so two concurrent operations against the same wallet never
// interleave their read-modify-write.
type WalletStore struct {
	mu      sync.RWMutex
	wallets map[string]*wallet.Wallet
	entries map[string][]*wallet.Entry
	keys    map[string]*sync.Mutex
}

// NewWalletStore creates an empty WalletStore.
func NewWalletStore() *WalletStore {
	return &WalletStore{
		wallets: make(map[string]*wallet.Wallet),
		entries: make(map[string][]*wallet.Entry),
		keys:    make(map[string]*sync.Mutex),
	}
}

// keyLock returns the per-wallet mutex for the given user.
func (s *WalletStore) keyLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.keys[userID]
	if !ok {
		m = &sync.Mutex{}
		s.keys[userID] = m
	}
	return m
}

// Create inserts a new wallet.
func (s *WalletStore) Create(_ context.Context, w *wallet.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[w.UserID] = w.Clone()
	return nil
}

// GetByUserID retrieves a copy of the wallet for the given user.
func (s *WalletStore) GetByUserID(_ context.Context, userID string) (*wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[userID]
	if !ok {
		return nil, domainErrors.ErrWalletNotFound
	}
	return w.Clone(), nil
}

// WithWallet runs fn against the user's wallet under the per-wallet lock and
// persists the result if fn succeeds. A failing fn leaves the stored wallet
// unchanged.
func (s *WalletStore) WithWallet(_ context.Context, userID string, fn func(w *wallet.Wallet) error) (*wallet.Wallet, error) {
	key := s.keyLock(userID)
	key.Lock()
	defer key.Unlock()

	s.mu.RLock()
	stored, ok := s.wallets[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, domainErrors.ErrWalletNotFound
	}

	working := stored.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.wallets[userID] = working
	s.mu.Unlock()
	return working.Clone(), nil
}

// AddEntry appends a ledger entry to the wallet's log.
func (s *WalletStore) AddEntry(_ context.Context, e *wallet.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.WalletUserID] = append(s.entries[e.WalletUserID], e)
	return nil
}

// GetEntries returns a page of the wallet's ledger entries, oldest first.
func (s *WalletStore) GetEntries(_ context.Context, userID string, limit, offset int) ([]*wallet.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.entries[userID]
	if offset >= len(entries) {
		return nil, nil
	}
	end := len(entries)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return entries[offset:end], nil
}
