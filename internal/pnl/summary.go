// Package pnl folds classified swap histories into per-token and portfolio
// summary statistics. All functions are pure and recompute from the full
// swap list, so results are always consistent with the underlying data at
// O(n) cost.
//
// The pnl model is sum-of-sells minus sum-of-buys per token. It does not
// reconstruct FIFO or weighted-average lots; the balance-diff source data
// cannot support exact lot matching, and pretending otherwise would be
// invented precision. Tokens that were never sold contribute zero, never a
// negative "unrealized" number.
package pnl

import (
	"sort"

	"solana-copydesk/internal/domain"
)

// tokenTotals accumulates one mint's buy/sell SOL volume.
type tokenTotals struct {
	mint      string
	symbol    string
	buysSol   float64
	sellsSol  float64
	buyCount  int
	sellCount int
}

// Summarize computes the portfolio summary over a wallet's swap history.
// Pass mint to restrict the summary to one token, or "" for all tokens.
func Summarize(swaps []*domain.ClassifiedSwap, mint string) domain.PerformanceSummary {
	var summary domain.PerformanceSummary

	for _, totals := range groupByMint(swaps, mint) {
		summary.TotalBuys += totals.buyCount
		summary.TotalSells += totals.sellCount

		// Only tokens with at least one sell enter the pnl and win/loss
		// tallies; unsold holdings are not losses.
		if totals.sellCount == 0 {
			continue
		}
		pnl := totals.sellsSol - totals.buysSol
		summary.TotalPnLSol += pnl
		switch {
		case pnl > 0:
			summary.WinningTrades++
		case pnl < 0:
			summary.LosingTrades++
		}
	}

	summary.TotalTrades = summary.TotalBuys + summary.TotalSells
	if decided := summary.WinningTrades + summary.LosingTrades; decided > 0 {
		summary.WinRate = float64(summary.WinningTrades) / float64(decided) * 100
	}
	return summary
}

// groupByMint accumulates buy/sell totals per token, optionally filtered.
func groupByMint(swaps []*domain.ClassifiedSwap, mint string) map[string]*tokenTotals {
	groups := make(map[string]*tokenTotals)
	for _, s := range swaps {
		if mint != "" && s.TokenMint != mint {
			continue
		}
		totals, ok := groups[s.TokenMint]
		if !ok {
			totals = &tokenTotals{mint: s.TokenMint, symbol: s.TokenSymbol}
			groups[s.TokenMint] = totals
		}
		if totals.symbol == "" {
			totals.symbol = s.TokenSymbol
		}
		switch s.Type {
		case domain.TradeTypeBuy:
			totals.buysSol += s.SolAmount
			totals.buyCount++
		case domain.TradeTypeSell:
			totals.sellsSol += s.SolAmount
			totals.sellCount++
		}
	}
	return groups
}

// sortedTotals returns per-token totals ordered by net pnl descending with
// mint as the deterministic tie-break.
func sortedTotals(groups map[string]*tokenTotals) []*tokenTotals {
	result := make([]*tokenTotals, 0, len(groups))
	for _, totals := range groups {
		result = append(result, totals)
	}
	sort.Slice(result, func(i, j int) bool {
		pi := result[i].sellsSol - result[i].buysSol
		pj := result[j].sellsSol - result[j].buysSol
		if pi != pj {
			return pi > pj
		}
		return result[i].mint < result[j].mint
	})
	return result
}
