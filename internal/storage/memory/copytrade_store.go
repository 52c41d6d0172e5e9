package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/storage"
)

// CopyTradeStore is an in-memory implementation of storage.CopyTradeStore.
type CopyTradeStore struct {
	mu   sync.Mutex
	data map[string]*domain.CopyTrade // keyed by id
	keys map[string]string            // user|source_signature -> id
}

// NewCopyTradeStore creates a new in-memory copy trade store.
func NewCopyTradeStore() *CopyTradeStore {
	return &CopyTradeStore{
		data: make(map[string]*domain.CopyTrade),
		keys: make(map[string]string),
	}
}

func copyTradeKey(userID, sourceSignature string) string {
	return userID + "|" + sourceSignature
}

// InsertExecuting inserts a new record in the executing state; the natural
// key (user_id, source_signature) is the at-most-once dispatch guard.
func (s *CopyTradeStore) InsertExecuting(_ context.Context, ct *domain.CopyTrade) error {
	if ct == nil || ct.ID == "" || ct.UserID == "" || ct.SourceSignature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := copyTradeKey(ct.UserID, ct.SourceSignature)
	if _, exists := s.keys[key]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *ct
	cp.Status = domain.CopyStatusExecuting
	s.data[cp.ID] = &cp
	s.keys[key] = cp.ID
	return nil
}

// MarkCompleted transitions a record to completed.
func (s *CopyTradeStore) MarkCompleted(_ context.Context, id, txSignature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ct, ok := s.data[id]
	if !ok {
		return storage.ErrNotFound
	}
	ct.Status = domain.CopyStatusCompleted
	ct.TxSignature = txSignature
	ct.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// MarkFailed transitions a record to failed with the captured message.
func (s *CopyTradeStore) MarkFailed(_ context.Context, id, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ct, ok := s.data[id]
	if !ok {
		return storage.ErrNotFound
	}
	ct.Status = domain.CopyStatusFailed
	ct.ErrorMessage = errorMessage
	ct.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// GetByUser retrieves a user's copy trades, newest first.
func (s *CopyTradeStore) GetByUser(_ context.Context, userID string) ([]*domain.CopyTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*domain.CopyTrade
	for _, ct := range s.data {
		if ct.UserID == userID {
			cp := *ct
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// GetStuckExecuting retrieves executing records created before the cutoff.
func (s *CopyTradeStore) GetStuckExecuting(_ context.Context, olderThan time.Time) ([]*domain.CopyTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := olderThan.UnixMilli()
	var result []*domain.CopyTrade
	for _, ct := range s.data {
		if ct.Status == domain.CopyStatusExecuting && ct.CreatedAt < cutoff {
			cp := *ct
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt < result[j].CreatedAt })
	return result, nil
}

var _ storage.CopyTradeStore = (*CopyTradeStore)(nil)
