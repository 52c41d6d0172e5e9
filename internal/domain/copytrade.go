package domain

// CopyTradeStatus is the lifecycle state of a mirrored trade attempt.
// Executing is the only non-terminal state; any failure must transition the
// record to failed rather than leaving it dangling.
type CopyTradeStatus string

const (
	CopyStatusExecuting CopyTradeStatus = "executing"
	CopyStatusCompleted CopyTradeStatus = "completed"
	CopyStatusFailed    CopyTradeStatus = "failed"
)

// CopyTrade records one attempt to mirror a source wallet's trade.
// Natural key: (user_id, source_signature), enforced by a unique constraint
// at the storage layer so concurrent dispatch cannot double-mirror.
type CopyTrade struct {
	ID              string // UUID
	UserID          string
	SourceWallet    string // followed wallet that made the trade
	SourceSignature string // signature of the source transaction
	TokenMint       string
	TokenSymbol     string
	Type            TradeType
	Platform        Platform

	SourceAmountSol   float64 // what the followed wallet traded
	ExecutedAmountSol float64 // what was mirrored, capped by max position

	Status       CopyTradeStatus
	TxSignature  string // our transaction, set on completion
	ErrorMessage string // captured verbatim on failure
	DryRun       bool   // simulated execution, never mixed with live records

	CreatedAt int64 // Unix ms
	UpdatedAt int64
}

// CopySettings holds a user's copy-trading configuration.
type CopySettings struct {
	UserID         string
	IsEnabled      bool
	MaxPositionSol float64 // hard cap per mirrored trade, never scaled up
	SlippageBps    int     // user-initiated trade slippage tolerance

	StopLossPercent   float64 // applied to positions opened by mirrored buys
	TakeProfitPercent float64

	UpdatedAt int64
}
