package storage

import (
	"context"
	"time"

	"solana-copydesk/internal/domain"
)

// FollowedWalletStore provides access to followed_wallets storage.
type FollowedWalletStore interface {
	// Upsert adds or updates a followed wallet, keyed by (user_id, address).
	Upsert(ctx context.Context, w *domain.FollowedWallet) error

	// GetActive retrieves all wallets with is_active=true across users.
	GetActive(ctx context.Context) ([]*domain.FollowedWallet, error)

	// GetByUser retrieves all wallets followed by a user.
	GetByUser(ctx context.Context, userID string) ([]*domain.FollowedWallet, error)

	// TouchScan records the completion time of a wallet scan.
	TouchScan(ctx context.Context, userID, address string, scannedAt int64) error
}

// SwapStore provides access to wallet_swaps storage.
type SwapStore interface {
	// Upsert adds a classified swap, keyed by (wallet, signature).
	// Re-observing a known signature is a no-op, not an error.
	Upsert(ctx context.Context, s *domain.ClassifiedSwap) error

	// UpsertBulk upserts multiple swaps in one transaction.
	UpsertBulk(ctx context.Context, swaps []*domain.ClassifiedSwap) error

	// GetByWallet retrieves all swaps for a wallet, ordered by block time DESC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.ClassifiedSwap, error)

	// GetByWalletToken retrieves a wallet's swaps for one mint, block time DESC.
	GetByWalletToken(ctx context.Context, wallet, mint string) ([]*domain.ClassifiedSwap, error)

	// Exists reports whether a swap with the given wallet and signature is stored.
	Exists(ctx context.Context, wallet, signature string) (bool, error)
}

// PositionStore provides access to positions storage. At most one open
// position may exist per (user_id, token_mint); the implementation enforces
// this with a partial unique index or equivalent.
type PositionStore interface {
	// Open inserts a new open position. Returns ErrDuplicateKey if the user
	// already has an open position for the mint.
	Open(ctx context.Context, p *domain.Position) error

	// GetOpen retrieves all open positions across all users.
	GetOpen(ctx context.Context) ([]*domain.Position, error)

	// GetOpenByUserToken retrieves the user's open position for a mint.
	// Returns ErrNotFound if none is open.
	GetOpenByUserToken(ctx context.Context, userID, mint string) (*domain.Position, error)

	// GetByUser retrieves all of a user's positions, open first, newest first.
	GetByUser(ctx context.Context, userID string) ([]*domain.Position, error)

	// UpdateLocked runs fn against the user's open position for the mint
	// under mutual exclusion (a transactional row lock in PostgreSQL) and
	// persists the mutated record. Returns ErrNotFound if no open position
	// exists; fn's error aborts the update and is returned unchanged.
	UpdateLocked(ctx context.Context, userID, mint string, fn func(p *domain.Position) error) error

	// RefreshPrice persists monitor-computed pricing fields without touching
	// the authoritative amount/average columns.
	RefreshPrice(ctx context.Context, id int64, currentPrice, pnlSol, pnlPercent float64) error
}

// CopyTradeStore provides access to copy_trades storage.
type CopyTradeStore interface {
	// InsertExecuting inserts a new record in the executing state. Returns
	// ErrDuplicateKey if (user_id, source_signature) already exists; this is
	// the at-most-once dispatch guard.
	InsertExecuting(ctx context.Context, ct *domain.CopyTrade) error

	// MarkCompleted transitions a record to completed with our tx signature.
	MarkCompleted(ctx context.Context, id, txSignature string) error

	// MarkFailed transitions a record to failed with the captured message.
	MarkFailed(ctx context.Context, id, errorMessage string) error

	// GetByUser retrieves a user's copy trades, newest first.
	GetByUser(ctx context.Context, userID string) ([]*domain.CopyTrade, error)

	// GetStuckExecuting retrieves records still executing that were created
	// before the cutoff, for external reconciliation sweeps.
	GetStuckExecuting(ctx context.Context, olderThan time.Time) ([]*domain.CopyTrade, error)
}

// SettingsStore provides access to copy_trade_settings storage.
type SettingsStore interface {
	// Get retrieves a user's settings. Returns ErrNotFound if absent.
	Get(ctx context.Context, userID string) (*domain.CopySettings, error)

	// Upsert adds or replaces a user's settings.
	Upsert(ctx context.Context, s *domain.CopySettings) error
}

// SwapArchiveStore is the append-only analytics archive of classified swaps.
type SwapArchiveStore interface {
	// Append stores classified swaps; duplicates are tolerated (the archive
	// deduplicates at query time).
	Append(ctx context.Context, swaps []*domain.ClassifiedSwap) error

	// DailyPnL returns per-day net pnl for a wallet over the trailing window.
	DailyPnL(ctx context.Context, wallet string, days int) ([]domain.DailyPnL, error)
}
