package memory

import (
	"context"
	"sort"
	"sync"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/storage"
)

// SwapStore is an in-memory implementation of storage.SwapStore.
type SwapStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ClassifiedSwap // keyed by wallet|signature
}

// NewSwapStore creates a new in-memory swap store.
func NewSwapStore() *SwapStore {
	return &SwapStore{
		data: make(map[string]*domain.ClassifiedSwap),
	}
}

func swapKey(wallet, signature string) string {
	return wallet + "|" + signature
}

// Upsert adds a classified swap; re-observing a known signature is a no-op.
func (s *SwapStore) Upsert(_ context.Context, swap *domain.ClassifiedSwap) error {
	if swap == nil || swap.Wallet == "" || swap.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := swapKey(swap.Wallet, swap.Signature)
	if _, exists := s.data[key]; exists {
		return nil
	}
	cp := *swap
	s.data[key] = &cp
	return nil
}

// UpsertBulk upserts multiple swaps.
func (s *SwapStore) UpsertBulk(ctx context.Context, swaps []*domain.ClassifiedSwap) error {
	for _, swap := range swaps {
		if err := s.Upsert(ctx, swap); err != nil {
			return err
		}
	}
	return nil
}

// GetByWallet retrieves all swaps for a wallet, ordered by block time DESC.
func (s *SwapStore) GetByWallet(_ context.Context, wallet string) ([]*domain.ClassifiedSwap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClassifiedSwap
	for _, swap := range s.data {
		if swap.Wallet == wallet {
			cp := *swap
			result = append(result, &cp)
		}
	}
	sortSwapsDesc(result)
	return result, nil
}

// GetByWalletToken retrieves a wallet's swaps for one mint, block time DESC.
func (s *SwapStore) GetByWalletToken(_ context.Context, wallet, mint string) ([]*domain.ClassifiedSwap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClassifiedSwap
	for _, swap := range s.data {
		if swap.Wallet == wallet && swap.TokenMint == mint {
			cp := *swap
			result = append(result, &cp)
		}
	}
	sortSwapsDesc(result)
	return result, nil
}

// Exists reports whether a swap with the given wallet and signature is stored.
func (s *SwapStore) Exists(_ context.Context, wallet, signature string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[swapKey(wallet, signature)]
	return ok, nil
}

func sortSwapsDesc(swaps []*domain.ClassifiedSwap) {
	sort.Slice(swaps, func(i, j int) bool {
		if swaps[i].BlockTime != swaps[j].BlockTime {
			return swaps[i].BlockTime > swaps[j].BlockTime
		}
		return swaps[i].Signature < swaps[j].Signature
	})
}

var _ storage.SwapStore = (*SwapStore)(nil)
