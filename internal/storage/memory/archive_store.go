package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/storage"
)

// SwapArchiveStore is an in-memory implementation of storage.SwapArchiveStore,
// used in tests and when no ClickHouse connection is configured.
type SwapArchiveStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ClassifiedSwap // deduplicated by wallet|signature
}

// NewSwapArchiveStore creates a new in-memory swap archive.
func NewSwapArchiveStore() *SwapArchiveStore {
	return &SwapArchiveStore{
		data: make(map[string]*domain.ClassifiedSwap),
	}
}

// Append stores classified swaps; duplicates are tolerated.
func (s *SwapArchiveStore) Append(_ context.Context, swaps []*domain.ClassifiedSwap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, swap := range swaps {
		if swap == nil || swap.Wallet == "" || swap.Signature == "" {
			return storage.ErrInvalidInput
		}
		cp := *swap
		s.data[swap.Wallet+"|"+swap.Signature] = &cp
	}
	return nil
}

// DailyPnL returns per-day net pnl for a wallet over the trailing window.
func (s *SwapArchiveStore) DailyPnL(_ context.Context, wallet string, days int) ([]domain.DailyPnL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since := time.Now().AddDate(0, 0, -days).Unix()
	type bucket struct {
		pnl    float64
		trades int
	}
	buckets := make(map[string]*bucket)
	for _, swap := range s.data {
		if swap.Wallet != wallet || swap.BlockTime < since {
			continue
		}
		date := time.Unix(swap.BlockTime, 0).UTC().Format("2006-01-02")
		b, ok := buckets[date]
		if !ok {
			b = &bucket{}
			buckets[date] = b
		}
		b.trades++
		if swap.Type == domain.TradeTypeSell {
			b.pnl += swap.SolAmount
		} else {
			b.pnl -= swap.SolAmount
		}
	}

	dates := make([]string, 0, len(buckets))
	for date := range buckets {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	result := make([]domain.DailyPnL, len(dates))
	for i, date := range dates {
		result[i] = domain.DailyPnL{Date: date, PnLSol: buckets[date].pnl, Trades: buckets[date].trades}
	}
	return result, nil
}

var _ storage.SwapArchiveStore = (*SwapArchiveStore)(nil)
