package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/storage"
)

// CopyTradeStore implements storage.CopyTradeStore using PostgreSQL. The
// unique constraint on (user_id, source_signature) is the at-most-once
// dispatch guard; InsertExecuting surfaces its violation as ErrDuplicateKey.
type CopyTradeStore struct {
	pool *Pool
}

// NewCopyTradeStore creates a new CopyTradeStore.
func NewCopyTradeStore(pool *Pool) *CopyTradeStore {
	return &CopyTradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CopyTradeStore = (*CopyTradeStore)(nil)

const copyTradeColumns = `
	id, user_id, source_wallet, source_signature, token_mint, token_symbol,
	trade_type, platform, source_amount_sol, executed_amount_sol,
	status, tx_signature, error_message, dry_run, created_at, updated_at
`

// InsertExecuting inserts a new record in the executing state.
func (s *CopyTradeStore) InsertExecuting(ctx context.Context, ct *domain.CopyTrade) error {
	if ct == nil || ct.ID == "" || ct.UserID == "" || ct.SourceSignature == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO copy_trades (
			id, user_id, source_wallet, source_signature, token_mint, token_symbol,
			trade_type, platform, source_amount_sol, executed_amount_sol,
			status, tx_signature, error_message, dry_run, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, '', '', $12, $13, $14)
	`

	_, err := s.pool.Exec(ctx, query,
		ct.ID,
		ct.UserID,
		ct.SourceWallet,
		ct.SourceSignature,
		ct.TokenMint,
		ct.TokenSymbol,
		string(ct.Type),
		string(ct.Platform),
		ct.SourceAmountSol,
		ct.ExecutedAmountSol,
		string(domain.CopyStatusExecuting),
		ct.DryRun,
		ct.CreatedAt,
		ct.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert copy trade: %w", err)
	}
	ct.Status = domain.CopyStatusExecuting
	return nil
}

// MarkCompleted transitions a record to completed with our tx signature.
func (s *CopyTradeStore) MarkCompleted(ctx context.Context, id, txSignature string) error {
	return s.transition(ctx, id, domain.CopyStatusCompleted, txSignature, "")
}

// MarkFailed transitions a record to failed with the captured message.
func (s *CopyTradeStore) MarkFailed(ctx context.Context, id, errorMessage string) error {
	return s.transition(ctx, id, domain.CopyStatusFailed, "", errorMessage)
}

func (s *CopyTradeStore) transition(ctx context.Context, id string, status domain.CopyTradeStatus, txSignature, errorMessage string) error {
	query := `
		UPDATE copy_trades
		SET status = $2, tx_signature = $3, error_message = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id, string(status), txSignature, errorMessage, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("transition copy trade to %s: %w", status, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByUser retrieves a user's copy trades, newest first.
func (s *CopyTradeStore) GetByUser(ctx context.Context, userID string) ([]*domain.CopyTrade, error) {
	query := `SELECT ` + copyTradeColumns + ` FROM copy_trades
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get copy trades by user: %w", err)
	}
	defer rows.Close()

	return scanCopyTrades(rows)
}

// GetStuckExecuting retrieves records still executing that were created
// before the cutoff, for external reconciliation sweeps.
func (s *CopyTradeStore) GetStuckExecuting(ctx context.Context, olderThan time.Time) ([]*domain.CopyTrade, error) {
	query := `SELECT ` + copyTradeColumns + ` FROM copy_trades
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, string(domain.CopyStatusExecuting), olderThan.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("get stuck copy trades: %w", err)
	}
	defer rows.Close()

	return scanCopyTrades(rows)
}

// scanCopyTrades scans multiple rows into a slice of CopyTrade.
func scanCopyTrades(rows pgx.Rows) ([]*domain.CopyTrade, error) {
	var trades []*domain.CopyTrade

	for rows.Next() {
		var ct domain.CopyTrade

		err := rows.Scan(
			&ct.ID,
			&ct.UserID,
			&ct.SourceWallet,
			&ct.SourceSignature,
			&ct.TokenMint,
			&ct.TokenSymbol,
			&ct.Type,
			&ct.Platform,
			&ct.SourceAmountSol,
			&ct.ExecutedAmountSol,
			&ct.Status,
			&ct.TxSignature,
			&ct.ErrorMessage,
			&ct.DryRun,
			&ct.CreatedAt,
			&ct.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan copy trade row: %w", err)
		}

		trades = append(trades, &ct)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate copy trade rows: %w", err)
	}

	return trades, nil
}
