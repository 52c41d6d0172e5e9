package postgres

import (
	"context"
	"fmt"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/storage"
)

// SettingsStore implements storage.SettingsStore using PostgreSQL.
type SettingsStore struct {
	pool *Pool
}

// NewSettingsStore creates a new SettingsStore.
func NewSettingsStore(pool *Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SettingsStore = (*SettingsStore)(nil)

// Get retrieves a user's settings. Returns ErrNotFound if absent.
func (s *SettingsStore) Get(ctx context.Context, userID string) (*domain.CopySettings, error) {
	query := `
		SELECT user_id, is_enabled, max_position_sol, slippage_bps,
			stop_loss_percent, take_profit_percent, updated_at
		FROM copy_trade_settings
		WHERE user_id = $1
	`

	var cs domain.CopySettings
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&cs.UserID,
		&cs.IsEnabled,
		&cs.MaxPositionSol,
		&cs.SlippageBps,
		&cs.StopLossPercent,
		&cs.TakeProfitPercent,
		&cs.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &cs, nil
}

// Upsert adds or replaces a user's settings.
func (s *SettingsStore) Upsert(ctx context.Context, settings *domain.CopySettings) error {
	if settings == nil || settings.UserID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO copy_trade_settings (
			user_id, is_enabled, max_position_sol, slippage_bps,
			stop_loss_percent, take_profit_percent, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			is_enabled = EXCLUDED.is_enabled,
			max_position_sol = EXCLUDED.max_position_sol,
			slippage_bps = EXCLUDED.slippage_bps,
			stop_loss_percent = EXCLUDED.stop_loss_percent,
			take_profit_percent = EXCLUDED.take_profit_percent,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		settings.UserID,
		settings.IsEnabled,
		settings.MaxPositionSol,
		settings.SlippageBps,
		settings.StopLossPercent,
		settings.TakeProfitPercent,
		settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
