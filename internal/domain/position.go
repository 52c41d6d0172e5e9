package domain

// Position is the authoritative open/closed state for one (user, token) pair.
// Corresponds to the positions table in PostgreSQL. At most one open row may
// exist per (user_id, token_mint); closing a position and buying the token
// again starts a new logical position with fresh averaging.
type Position struct {
	ID            int64  // BIGSERIAL primary key
	UserID        string // owning user
	TokenMint     string // token mint address
	TokenSymbol   string // display symbol at open time
	TokenDecimals int    // mint decimals, needed to size exit swaps in raw units

	Amount      float64 // current quantity held; 0 with IsOpen=false means closed
	AvgBuyPrice float64 // volume-weighted average entry price (SOL per token)
	EntryPrice  float64 // price at first open, immutable; SL/TP reference

	CurrentPrice         float64 // refreshed by the monitor, not authoritative
	UnrealizedPnLSol     float64
	UnrealizedPnLPercent float64

	StopLossPercent   float64 // positive percentage below entry
	TakeProfitPercent float64 // positive percentage above entry

	RealizedPnLSol float64 // computed once at close
	IsOpen         bool

	OpenedAt  int64 // Unix ms
	ClosedAt  *int64
	UpdatedAt int64
}

// PnLPercent returns the position's deviation from entry at the given price,
// in percent. Returns 0 when the entry price is not positive.
func (p *Position) PnLPercent(currentPrice float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (currentPrice - p.EntryPrice) / p.EntryPrice * 100
}
