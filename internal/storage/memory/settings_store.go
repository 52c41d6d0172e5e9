package memory

import (
	"context"
	"sync"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/storage"
)

// SettingsStore is an in-memory implementation of storage.SettingsStore.
type SettingsStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CopySettings
}

// NewSettingsStore creates a new in-memory settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{
		data: make(map[string]*domain.CopySettings),
	}
}

// Get retrieves a user's settings. Returns ErrNotFound if absent.
func (s *SettingsStore) Get(_ context.Context, userID string) (*domain.CopySettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.data[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *settings
	return &cp, nil
}

// Upsert adds or replaces a user's settings.
func (s *SettingsStore) Upsert(_ context.Context, settings *domain.CopySettings) error {
	if settings == nil || settings.UserID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *settings
	s.data[cp.UserID] = &cp
	return nil
}

var _ storage.SettingsStore = (*SettingsStore)(nil)
