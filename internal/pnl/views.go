package pnl

import (
	"sort"
	"time"

	"solana-copydesk/internal/domain"
)

// DefaultDailyBuckets caps the daily pnl view to the most recent buckets.
const DefaultDailyBuckets = 30

// TradesToday counts swaps whose block time falls within the calendar day
// of now in the given location.
func TradesToday(swaps []*domain.ClassifiedSwap, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	dayStart := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	count := 0
	for _, s := range swaps {
		t := time.Unix(s.BlockTime, 0).In(loc)
		if !t.Before(dayStart) && t.Before(dayEnd) {
			count++
		}
	}
	return count
}

// TopTokens ranks tokens by naive per-trade pnl: sells credited positive,
// buys negative, summed per mint. Returns at most n entries, best first.
func TopTokens(swaps []*domain.ClassifiedSwap, n int) []domain.TokenPnL {
	groups := groupByMint(swaps, "")
	ranked := sortedTotals(groups)

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	result := make([]domain.TokenPnL, len(ranked))
	for i, totals := range ranked {
		result[i] = domain.TokenPnL{
			TokenMint:   totals.mint,
			TokenSymbol: totals.symbol,
			PnLSol:      totals.sellsSol - totals.buysSol,
			TradeCount:  totals.buyCount + totals.sellCount,
		}
	}
	return result
}

// PlatformDistribution returns the share of trade count per venue, rounded
// to whole percent, ordered by share descending then platform name.
func PlatformDistribution(swaps []*domain.ClassifiedSwap) []domain.PlatformShare {
	if len(swaps) == 0 {
		return nil
	}

	counts := make(map[domain.Platform]int)
	for _, s := range swaps {
		counts[s.Platform]++
	}

	total := float64(len(swaps))
	result := make([]domain.PlatformShare, 0, len(counts))
	for platform, count := range counts {
		result = append(result, domain.PlatformShare{
			Platform: platform,
			Percent:  int(float64(count)/total*100 + 0.5),
			Trades:   count,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Trades != result[j].Trades {
			return result[i].Trades > result[j].Trades
		}
		return result[i].Platform < result[j].Platform
	})
	return result
}

// DailyPnL buckets net pnl by calendar date (sells positive, buys negative)
// and returns at most maxBuckets of the most recent days, oldest first.
// maxBuckets <= 0 applies DefaultDailyBuckets.
func DailyPnL(swaps []*domain.ClassifiedSwap, loc *time.Location, maxBuckets int) []domain.DailyPnL {
	if loc == nil {
		loc = time.Local
	}
	if maxBuckets <= 0 {
		maxBuckets = DefaultDailyBuckets
	}

	type bucket struct {
		pnl    float64
		trades int
	}
	buckets := make(map[string]*bucket)
	for _, s := range swaps {
		date := time.Unix(s.BlockTime, 0).In(loc).Format("2006-01-02")
		b, ok := buckets[date]
		if !ok {
			b = &bucket{}
			buckets[date] = b
		}
		b.trades++
		if s.Type == domain.TradeTypeSell {
			b.pnl += s.SolAmount
		} else {
			b.pnl -= s.SolAmount
		}
	}

	dates := make([]string, 0, len(buckets))
	for date := range buckets {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	if len(dates) > maxBuckets {
		dates = dates[len(dates)-maxBuckets:]
	}

	result := make([]domain.DailyPnL, len(dates))
	for i, date := range dates {
		result[i] = domain.DailyPnL{
			Date:   date,
			PnLSol: buckets[date].pnl,
			Trades: buckets[date].trades,
		}
	}
	return result
}
