package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copydesk/internal/domain"
)

func archivedSwap(wallet, signature string, tradeType domain.TradeType, solAmount float64, blockTime time.Time) *domain.ClassifiedSwap {
	return &domain.ClassifiedSwap{
		Signature:     signature,
		Wallet:        wallet,
		BlockTime:     blockTime.Unix(),
		Type:          tradeType,
		TokenMint:     "TokenMint1111111111111111111111111111111111",
		TokenSymbol:   "TKN",
		TokenDecimals: 6,
		TokenAmount:   1000,
		SolAmount:     solAmount,
		Platform:      domain.PlatformJupiter,
		PriceUSD:      ptr(0.0042),
		CreatedAt:     time.Now().UnixMilli(),
	}
}

func TestSwapArchiveStore_AppendAndDailyPnL(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapArchiveStore(conn)
	ctx := context.Background()

	now := time.Now().UTC()
	yesterday := now.AddDate(0, 0, -1)

	err := store.Append(ctx, []*domain.ClassifiedSwap{
		archivedSwap("walletA", "sig-1", domain.TradeTypeBuy, 2.0, yesterday),
		archivedSwap("walletA", "sig-2", domain.TradeTypeSell, 3.5, yesterday),
		archivedSwap("walletA", "sig-3", domain.TradeTypeSell, 1.0, now),
		archivedSwap("walletB", "sig-4", domain.TradeTypeSell, 99.0, now),
	})
	require.NoError(t, err)

	daily, err := store.DailyPnL(ctx, "walletA", 7)
	require.NoError(t, err)
	require.Len(t, daily, 2)

	assert.Equal(t, yesterday.Format("2006-01-02"), daily[0].Date)
	assert.InDelta(t, 1.5, daily[0].PnLSol, 1e-9)
	assert.Equal(t, 2, daily[0].Trades)

	assert.Equal(t, now.Format("2006-01-02"), daily[1].Date)
	assert.InDelta(t, 1.0, daily[1].PnLSol, 1e-9)
	assert.Equal(t, 1, daily[1].Trades)
}

func TestSwapArchiveStore_DuplicatesCollapseAtQueryTime(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapArchiveStore(conn)
	ctx := context.Background()

	now := time.Now().UTC()
	swap := archivedSwap("walletA", "sig-1", domain.TradeTypeSell, 2.0, now)

	require.NoError(t, store.Append(ctx, []*domain.ClassifiedSwap{swap}))

	// Re-observing the same signature on a later scan must not double count.
	again := archivedSwap("walletA", "sig-1", domain.TradeTypeSell, 2.0, now)
	again.CreatedAt = swap.CreatedAt + 1
	require.NoError(t, store.Append(ctx, []*domain.ClassifiedSwap{again}))

	daily, err := store.DailyPnL(ctx, "walletA", 7)
	require.NoError(t, err)
	require.Len(t, daily, 1)

	assert.InDelta(t, 2.0, daily[0].PnLSol, 1e-9)
	assert.Equal(t, 1, daily[0].Trades)
}

func TestSwapArchiveStore_DailyPnLHonorsWindow(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapArchiveStore(conn)
	ctx := context.Background()

	now := time.Now().UTC()
	err := store.Append(ctx, []*domain.ClassifiedSwap{
		archivedSwap("walletA", "sig-old", domain.TradeTypeSell, 5.0, now.AddDate(0, 0, -30)),
		archivedSwap("walletA", "sig-new", domain.TradeTypeSell, 1.0, now),
	})
	require.NoError(t, err)

	daily, err := store.DailyPnL(ctx, "walletA", 7)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, now.Format("2006-01-02"), daily[0].Date)
}

func TestSwapArchiveStore_EmptyAppendIsNoop(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapArchiveStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, nil))

	daily, err := store.DailyPnL(ctx, "walletA", 7)
	require.NoError(t, err)
	assert.Empty(t, daily)
}
