package clickhouse

import (
	"context"
	"fmt"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/storage"
)

// SwapArchiveStore implements storage.SwapArchiveStore using ClickHouse.
type SwapArchiveStore struct {
	conn *Conn
}

// NewSwapArchiveStore creates a new SwapArchiveStore.
func NewSwapArchiveStore(conn *Conn) *SwapArchiveStore {
	return &SwapArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SwapArchiveStore = (*SwapArchiveStore)(nil)

// Append stores classified swaps. Duplicate (wallet, signature) pairs are
// accepted; ReplacingMergeTree collapses them at merge time and read queries
// deduplicate with argMax.
func (s *SwapArchiveStore) Append(ctx context.Context, swaps []*domain.ClassifiedSwap) error {
	if len(swaps) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO swap_archive (
			wallet, signature, block_time, trade_type, token_mint, token_symbol,
			token_decimals, token_amount, sol_amount, platform, price_usd, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, swap := range swaps {
		err = batch.Append(
			swap.Wallet, swap.Signature, swap.BlockTime, string(swap.Type),
			swap.TokenMint, swap.TokenSymbol, int32(swap.TokenDecimals),
			swap.TokenAmount, swap.SolAmount, string(swap.Platform),
			swap.PriceUSD, swap.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// DailyPnL returns per-day net pnl for a wallet over the trailing window,
// oldest day first. Sells add to the day's pnl, buys subtract.
func (s *SwapArchiveStore) DailyPnL(ctx context.Context, wallet string, days int) ([]domain.DailyPnL, error) {
	query := `
		SELECT
			toString(toDate(toDateTime(block_time))) AS day,
			sum(if(trade_type = 'sell', sol_amount, -sol_amount)) AS pnl_sol,
			count() AS trades
		FROM (
			SELECT
				wallet, signature,
				argMax(block_time, created_at) AS block_time,
				argMax(trade_type, created_at) AS trade_type,
				argMax(sol_amount, created_at) AS sol_amount
			FROM swap_archive
			WHERE wallet = ? AND block_time >= toUnixTimestamp(now() - toIntervalDay(?))
			GROUP BY wallet, signature
		)
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := s.conn.Query(ctx, query, wallet, uint32(days))
	if err != nil {
		return nil, fmt.Errorf("query daily pnl: %w", err)
	}
	defer rows.Close()

	var result []domain.DailyPnL

	for rows.Next() {
		var (
			d      domain.DailyPnL
			trades uint64
		)
		if err := rows.Scan(&d.Date, &d.PnLSol, &trades); err != nil {
			return nil, fmt.Errorf("scan daily pnl row: %w", err)
		}
		d.Trades = int(trades)
		result = append(result, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily pnl rows: %w", err)
	}

	return result, nil
}
