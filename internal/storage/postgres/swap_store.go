package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/storage"
)

// SwapStore implements storage.SwapStore using PostgreSQL.
type SwapStore struct {
	pool *Pool
}

// NewSwapStore creates a new SwapStore.
func NewSwapStore(pool *Pool) *SwapStore {
	return &SwapStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SwapStore = (*SwapStore)(nil)

const upsertSwapQuery = `
	INSERT INTO wallet_swaps (
		signature, wallet, block_time, trade_type, token_mint, token_symbol,
		token_decimals, token_amount, sol_amount, platform, price_usd, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (wallet, signature) DO NOTHING
`

// Upsert adds a classified swap, keyed by (wallet, signature). Re-observing
// a known signature is a no-op, not an error.
func (s *SwapStore) Upsert(ctx context.Context, swap *domain.ClassifiedSwap) error {
	if swap == nil || swap.Wallet == "" || swap.Signature == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, upsertSwapQuery, swapArgs(swap)...)
	if err != nil {
		return fmt.Errorf("upsert swap: %w", err)
	}
	return nil
}

// UpsertBulk upserts multiple swaps in one transaction.
func (s *SwapStore) UpsertBulk(ctx context.Context, swaps []*domain.ClassifiedSwap) error {
	if len(swaps) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, swap := range swaps {
		if swap == nil || swap.Wallet == "" || swap.Signature == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, upsertSwapQuery, swapArgs(swap)...); err != nil {
			return fmt.Errorf("upsert swap in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByWallet retrieves all swaps for a wallet, ordered by block time DESC.
func (s *SwapStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.ClassifiedSwap, error) {
	query := `
		SELECT signature, wallet, block_time, trade_type, token_mint, token_symbol,
			token_decimals, token_amount, sol_amount, platform, price_usd, created_at
		FROM wallet_swaps
		WHERE wallet = $1
		ORDER BY block_time DESC, signature DESC
	`

	rows, err := s.pool.Query(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("get swaps by wallet: %w", err)
	}
	defer rows.Close()

	return scanClassifiedSwaps(rows)
}

// GetByWalletToken retrieves a wallet's swaps for one mint, block time DESC.
func (s *SwapStore) GetByWalletToken(ctx context.Context, wallet, mint string) ([]*domain.ClassifiedSwap, error) {
	query := `
		SELECT signature, wallet, block_time, trade_type, token_mint, token_symbol,
			token_decimals, token_amount, sol_amount, platform, price_usd, created_at
		FROM wallet_swaps
		WHERE wallet = $1 AND token_mint = $2
		ORDER BY block_time DESC, signature DESC
	`

	rows, err := s.pool.Query(ctx, query, wallet, mint)
	if err != nil {
		return nil, fmt.Errorf("get swaps by wallet and token: %w", err)
	}
	defer rows.Close()

	return scanClassifiedSwaps(rows)
}

// Exists reports whether a swap with the given wallet and signature is stored.
func (s *SwapStore) Exists(ctx context.Context, wallet, signature string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM wallet_swaps WHERE wallet = $1 AND signature = $2)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, wallet, signature).Scan(&exists); err != nil {
		return false, fmt.Errorf("check swap exists: %w", err)
	}
	return exists, nil
}

func swapArgs(swap *domain.ClassifiedSwap) []interface{} {
	return []interface{}{
		swap.Signature,
		swap.Wallet,
		swap.BlockTime,
		string(swap.Type),
		swap.TokenMint,
		swap.TokenSymbol,
		swap.TokenDecimals,
		swap.TokenAmount,
		swap.SolAmount,
		string(swap.Platform),
		swap.PriceUSD,
		swap.CreatedAt,
	}
}

// scanClassifiedSwaps scans multiple rows into a slice of ClassifiedSwap.
func scanClassifiedSwaps(rows pgx.Rows) ([]*domain.ClassifiedSwap, error) {
	var swaps []*domain.ClassifiedSwap

	for rows.Next() {
		var swap domain.ClassifiedSwap

		err := rows.Scan(
			&swap.Signature,
			&swap.Wallet,
			&swap.BlockTime,
			&swap.Type,
			&swap.TokenMint,
			&swap.TokenSymbol,
			&swap.TokenDecimals,
			&swap.TokenAmount,
			&swap.SolAmount,
			&swap.Platform,
			&swap.PriceUSD,
			&swap.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap row: %w", err)
		}

		swaps = append(swaps, &swap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap rows: %w", err)
	}

	return swaps, nil
}
