package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL. The
// one-open-position-per-(user, mint) rule is enforced by a partial unique
// index; UpdateLocked serializes mutations with a transactional row lock.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	id, user_id, token_mint, token_symbol, token_decimals,
	amount, avg_buy_price, entry_price,
	current_price, unrealized_pnl_sol, unrealized_pnl_percent,
	stop_loss_percent, take_profit_percent,
	realized_pnl_sol, is_open, opened_at, closed_at, updated_at
`

// Open inserts a new open position. Returns ErrDuplicateKey if the user
// already has an open position for the mint.
func (s *PositionStore) Open(ctx context.Context, p *domain.Position) error {
	if p == nil || p.UserID == "" || p.TokenMint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO positions (
			user_id, token_mint, token_symbol, token_decimals,
			amount, avg_buy_price, entry_price,
			current_price, unrealized_pnl_sol, unrealized_pnl_percent,
			stop_loss_percent, take_profit_percent,
			realized_pnl_sol, is_open, opened_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, true, $14, $15)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		p.UserID,
		p.TokenMint,
		p.TokenSymbol,
		p.TokenDecimals,
		p.Amount,
		p.AvgBuyPrice,
		p.EntryPrice,
		p.CurrentPrice,
		p.UnrealizedPnLSol,
		p.UnrealizedPnLPercent,
		p.StopLossPercent,
		p.TakeProfitPercent,
		p.RealizedPnLSol,
		p.OpenedAt,
		p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("open position: %w", err)
	}
	p.IsOpen = true
	return nil
}

// GetOpen retrieves all open positions across all users.
func (s *PositionStore) GetOpen(ctx context.Context) ([]*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE is_open = true ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get open positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetOpenByUserToken retrieves the user's open position for a mint.
// Returns ErrNotFound if none is open.
func (s *PositionStore) GetOpenByUserToken(ctx context.Context, userID, mint string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions
		WHERE user_id = $1 AND token_mint = $2 AND is_open = true`

	p, err := scanPosition(s.pool.QueryRow(ctx, query, userID, mint))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get open position: %w", err)
	}
	return p, nil
}

// GetByUser retrieves all of a user's positions, open first, newest first.
func (s *PositionStore) GetByUser(ctx context.Context, userID string) ([]*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions
		WHERE user_id = $1
		ORDER BY is_open DESC, opened_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get positions by user: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// UpdateLocked runs fn against the user's open position for the mint inside
// a transaction holding the row lock, then persists the mutated record.
// This is the serialization point for concurrent buys and sells on the same
// position.
func (s *PositionStore) UpdateLocked(ctx context.Context, userID, mint string, fn func(p *domain.Position) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + positionColumns + ` FROM positions
		WHERE user_id = $1 AND token_mint = $2 AND is_open = true
		FOR UPDATE`

	p, err := scanPosition(tx.QueryRow(ctx, query, userID, mint))
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock position: %w", err)
	}

	if err := fn(p); err != nil {
		return err
	}

	update := `
		UPDATE positions SET
			token_symbol = $2, amount = $3, avg_buy_price = $4, entry_price = $5,
			current_price = $6, unrealized_pnl_sol = $7, unrealized_pnl_percent = $8,
			stop_loss_percent = $9, take_profit_percent = $10,
			realized_pnl_sol = $11, is_open = $12, closed_at = $13, updated_at = $14
		WHERE id = $1
	`

	_, err = tx.Exec(ctx, update,
		p.ID,
		p.TokenSymbol,
		p.Amount,
		p.AvgBuyPrice,
		p.EntryPrice,
		p.CurrentPrice,
		p.UnrealizedPnLSol,
		p.UnrealizedPnLPercent,
		p.StopLossPercent,
		p.TakeProfitPercent,
		p.RealizedPnLSol,
		p.IsOpen,
		p.ClosedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// RefreshPrice persists monitor-computed pricing fields without touching the
// authoritative amount/average columns.
func (s *PositionStore) RefreshPrice(ctx context.Context, id int64, currentPrice, pnlSol, pnlPercent float64) error {
	query := `
		UPDATE positions
		SET current_price = $2, unrealized_pnl_sol = $3, unrealized_pnl_percent = $4
		WHERE id = $1 AND is_open = true
	`

	tag, err := s.pool.Exec(ctx, query, id, currentPrice, pnlSol, pnlPercent)
	if err != nil {
		return fmt.Errorf("refresh position price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrPositionClosed
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanPosition scans one row into a Position.
func scanPosition(row rowScanner) (*domain.Position, error) {
	var p domain.Position

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.TokenMint,
		&p.TokenSymbol,
		&p.TokenDecimals,
		&p.Amount,
		&p.AvgBuyPrice,
		&p.EntryPrice,
		&p.CurrentPrice,
		&p.UnrealizedPnLSol,
		&p.UnrealizedPnLPercent,
		&p.StopLossPercent,
		&p.TakeProfitPercent,
		&p.RealizedPnLSol,
		&p.IsOpen,
		&p.OpenedAt,
		&p.ClosedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// scanPositions scans multiple rows into a slice of Position.
func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var positions []*domain.Position

	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}

	return positions, nil
}
