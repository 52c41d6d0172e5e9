package memory

import (
	"context"
	"sort"
	"sync"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
// A single mutex serializes all mutations, which satisfies the per-row
// exclusion the interface requires.
type PositionStore struct {
	mu     sync.Mutex
	nextID int64
	data   map[int64]*domain.Position
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		nextID: 1,
		data:   make(map[int64]*domain.Position),
	}
}

// Open inserts a new open position. Returns ErrDuplicateKey if the user
// already has an open position for the mint.
func (s *PositionStore) Open(_ context.Context, p *domain.Position) error {
	if p == nil || p.UserID == "" || p.TokenMint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findOpen(p.UserID, p.TokenMint) != nil {
		return storage.ErrDuplicateKey
	}

	cp := *p
	cp.ID = s.nextID
	s.nextID++
	cp.IsOpen = true
	s.data[cp.ID] = &cp
	p.ID = cp.ID
	return nil
}

// GetOpen retrieves all open positions across all users.
func (s *PositionStore) GetOpen(_ context.Context) ([]*domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.IsOpen {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// GetOpenByUserToken retrieves the user's open position for a mint.
func (s *PositionStore) GetOpenByUserToken(_ context.Context, userID, mint string) (*domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p := s.findOpen(userID, mint); p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, storage.ErrNotFound
}

// GetByUser retrieves all of a user's positions, open first, newest first.
func (s *PositionStore) GetByUser(_ context.Context, userID string) ([]*domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.UserID == userID {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].IsOpen != result[j].IsOpen {
			return result[i].IsOpen
		}
		return result[i].OpenedAt > result[j].OpenedAt
	})
	return result, nil
}

// UpdateLocked runs fn against the user's open position for the mint under
// the store mutex and persists the result.
func (s *PositionStore) UpdateLocked(_ context.Context, userID, mint string, fn func(p *domain.Position) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.findOpen(userID, mint)
	if stored == nil {
		return storage.ErrNotFound
	}

	cp := *stored
	if err := fn(&cp); err != nil {
		return err
	}
	s.data[cp.ID] = &cp
	return nil
}

// RefreshPrice persists monitor-computed pricing fields.
func (s *PositionStore) RefreshPrice(_ context.Context, id int64, currentPrice, pnlSol, pnlPercent float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.data[id]
	if !ok {
		return storage.ErrNotFound
	}
	if !p.IsOpen {
		return storage.ErrPositionClosed
	}
	p.CurrentPrice = currentPrice
	p.UnrealizedPnLSol = pnlSol
	p.UnrealizedPnLPercent = pnlPercent
	return nil
}

func (s *PositionStore) findOpen(userID, mint string) *domain.Position {
	for _, p := range s.data {
		if p.IsOpen && p.UserID == userID && p.TokenMint == mint {
			return p
		}
	}
	return nil
}

var _ storage.PositionStore = (*PositionStore)(nil)
