package domain

// PerformanceSummary aggregates a wallet's classified swap history.
// Derived, never persisted authoritatively: it is recomputed from the full
// swap list so it stays consistent with the underlying data.
type PerformanceSummary struct {
	TotalTrades   int
	TotalBuys     int
	TotalSells    int
	TotalPnLSol   float64
	WinningTrades int // tokens with at least one sell and positive pnl
	LosingTrades  int // tokens with at least one sell and negative pnl
	WinRate       float64
}

// TokenPnL is one token's naive per-trade pnl total (sells credited
// positive, buys negative) for the top-tokens view.
type TokenPnL struct {
	TokenMint   string
	TokenSymbol string
	PnLSol      float64
	TradeCount  int
}

// DailyPnL is one calendar-day bucket of net pnl.
type DailyPnL struct {
	Date   string // YYYY-MM-DD in the aggregator's location
	PnLSol float64
	Trades int
}

// PlatformShare is the percentage of trade count routed through one venue.
type PlatformShare struct {
	Platform Platform
	Percent  int
	Trades   int
}
