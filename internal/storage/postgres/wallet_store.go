package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/storage"
)

// FollowedWalletStore implements storage.FollowedWalletStore using PostgreSQL.
type FollowedWalletStore struct {
	pool *Pool
}

// NewFollowedWalletStore creates a new FollowedWalletStore.
func NewFollowedWalletStore(pool *Pool) *FollowedWalletStore {
	return &FollowedWalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FollowedWalletStore = (*FollowedWalletStore)(nil)

// Upsert adds or updates a followed wallet, keyed by (user_id, address).
func (s *FollowedWalletStore) Upsert(ctx context.Context, w *domain.FollowedWallet) error {
	if w == nil || w.UserID == "" || w.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO followed_wallets (user_id, address, label, is_active, added_at, last_scan_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, address) DO UPDATE SET
			label = EXCLUDED.label,
			is_active = EXCLUDED.is_active
	`

	_, err := s.pool.Exec(ctx, query,
		w.UserID,
		w.Address,
		w.Label,
		w.IsActive,
		w.AddedAt,
		w.LastScanAt,
	)
	if err != nil {
		return fmt.Errorf("upsert followed wallet: %w", err)
	}
	return nil
}

// GetActive retrieves all wallets with is_active=true across users.
func (s *FollowedWalletStore) GetActive(ctx context.Context) ([]*domain.FollowedWallet, error) {
	query := `
		SELECT user_id, address, label, is_active, added_at, last_scan_at
		FROM followed_wallets
		WHERE is_active = true
		ORDER BY user_id ASC, address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get active wallets: %w", err)
	}
	defer rows.Close()

	return scanWallets(rows)
}

// GetByUser retrieves all wallets followed by a user.
func (s *FollowedWalletStore) GetByUser(ctx context.Context, userID string) ([]*domain.FollowedWallet, error) {
	query := `
		SELECT user_id, address, label, is_active, added_at, last_scan_at
		FROM followed_wallets
		WHERE user_id = $1
		ORDER BY address ASC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get wallets by user: %w", err)
	}
	defer rows.Close()

	return scanWallets(rows)
}

// TouchScan records the completion time of a wallet scan.
func (s *FollowedWalletStore) TouchScan(ctx context.Context, userID, address string, scannedAt int64) error {
	query := `
		UPDATE followed_wallets
		SET last_scan_at = $3
		WHERE user_id = $1 AND address = $2
	`

	tag, err := s.pool.Exec(ctx, query, userID, address, scannedAt)
	if err != nil {
		return fmt.Errorf("touch wallet scan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanWallets scans multiple rows into a slice of FollowedWallet.
func scanWallets(rows pgx.Rows) ([]*domain.FollowedWallet, error) {
	var wallets []*domain.FollowedWallet

	for rows.Next() {
		var w domain.FollowedWallet

		err := rows.Scan(
			&w.UserID,
			&w.Address,
			&w.Label,
			&w.IsActive,
			&w.AddedAt,
			&w.LastScanAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}

		wallets = append(wallets, &w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}

	return wallets, nil
}
