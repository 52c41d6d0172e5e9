package memory

import (
	"context"
	"sort"
	"sync"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/storage"
)

// FollowedWalletStore is an in-memory implementation of storage.FollowedWalletStore.
type FollowedWalletStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FollowedWallet // keyed by user|address
}

// NewFollowedWalletStore creates a new in-memory followed wallet store.
func NewFollowedWalletStore() *FollowedWalletStore {
	return &FollowedWalletStore{
		data: make(map[string]*domain.FollowedWallet),
	}
}

func walletKey(userID, address string) string {
	return userID + "|" + address
}

// Upsert adds or updates a followed wallet.
func (s *FollowedWalletStore) Upsert(_ context.Context, w *domain.FollowedWallet) error {
	if w == nil || w.UserID == "" || w.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *w
	s.data[walletKey(cp.UserID, cp.Address)] = &cp
	return nil
}

// GetActive retrieves all wallets with is_active=true across users.
func (s *FollowedWalletStore) GetActive(_ context.Context) ([]*domain.FollowedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FollowedWallet
	for _, w := range s.data {
		if w.IsActive {
			cp := *w
			result = append(result, &cp)
		}
	}
	sortWallets(result)
	return result, nil
}

// GetByUser retrieves all wallets followed by a user.
func (s *FollowedWalletStore) GetByUser(_ context.Context, userID string) ([]*domain.FollowedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FollowedWallet
	for _, w := range s.data {
		if w.UserID == userID {
			cp := *w
			result = append(result, &cp)
		}
	}
	sortWallets(result)
	return result, nil
}

// TouchScan records the completion time of a wallet scan.
func (s *FollowedWalletStore) TouchScan(_ context.Context, userID, address string, scannedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.data[walletKey(userID, address)]
	if !ok {
		return storage.ErrNotFound
	}
	w.LastScanAt = scannedAt
	return nil
}

func sortWallets(wallets []*domain.FollowedWallet) {
	sort.Slice(wallets, func(i, j int) bool {
		if wallets[i].UserID != wallets[j].UserID {
			return wallets[i].UserID < wallets[j].UserID
		}
		return wallets[i].Address < wallets[j].Address
	})
}

var _ storage.FollowedWalletStore = (*FollowedWalletStore)(nil)
