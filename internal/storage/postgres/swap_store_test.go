package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/storage"
)

func newClassifiedSwap(wallet, signature string, blockTime int64) *domain.ClassifiedSwap {
	return &domain.ClassifiedSwap{
		Signature:     signature,
		Wallet:        wallet,
		BlockTime:     blockTime,
		Type:          domain.TradeTypeBuy,
		TokenMint:     "TokenMint1111111111111111111111111111111111",
		TokenSymbol:   "TKN",
		TokenDecimals: 6,
		TokenAmount:   1000,
		SolAmount:     1.5,
		Platform:      domain.PlatformJupiter,
		PriceUSD:      ptr(0.0042),
		CreatedAt:     time.Now().UnixMilli(),
	}
}

func TestSwapStore_UpsertAndGetByWallet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapStore(pool)
	ctx := context.Background()

	older := newClassifiedSwap("walletA", "sig-1", 1000)
	newer := newClassifiedSwap("walletA", "sig-2", 2000)
	other := newClassifiedSwap("walletB", "sig-3", 1500)

	require.NoError(t, store.Upsert(ctx, older))
	require.NoError(t, store.Upsert(ctx, newer))
	require.NoError(t, store.Upsert(ctx, other))

	swaps, err := store.GetByWallet(ctx, "walletA")
	require.NoError(t, err)
	require.Len(t, swaps, 2)

	// Newest block time first
	assert.Equal(t, "sig-2", swaps[0].Signature)
	assert.Equal(t, "sig-1", swaps[1].Signature)
	assert.Equal(t, domain.TradeTypeBuy, swaps[0].Type)
	assert.Equal(t, 6, swaps[0].TokenDecimals)
	require.NotNil(t, swaps[0].PriceUSD)
	assert.InDelta(t, 0.0042, *swaps[0].PriceUSD, 1e-9)
}

func TestSwapStore_UpsertIsIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapStore(pool)
	ctx := context.Background()

	swap := newClassifiedSwap("walletA", "sig-1", 1000)
	require.NoError(t, store.Upsert(ctx, swap))

	// Re-observing the signature keeps the original row
	replay := newClassifiedSwap("walletA", "sig-1", 1000)
	replay.SolAmount = 99.0
	require.NoError(t, store.Upsert(ctx, replay))

	swaps, err := store.GetByWallet(ctx, "walletA")
	require.NoError(t, err)
	require.Len(t, swaps, 1)
	assert.InDelta(t, 1.5, swaps[0].SolAmount, 1e-9)
}

func TestSwapStore_UpsertBulk(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapStore(pool)
	ctx := context.Background()

	err := store.UpsertBulk(ctx, []*domain.ClassifiedSwap{
		newClassifiedSwap("walletA", "sig-1", 1000),
		newClassifiedSwap("walletA", "sig-2", 2000),
		newClassifiedSwap("walletA", "sig-1", 1000), // duplicate inside the batch
	})
	require.NoError(t, err)

	swaps, err := store.GetByWallet(ctx, "walletA")
	require.NoError(t, err)
	assert.Len(t, swaps, 2)

	require.NoError(t, store.UpsertBulk(ctx, nil))
}

func TestSwapStore_GetByWalletToken(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapStore(pool)
	ctx := context.Background()

	matching := newClassifiedSwap("walletA", "sig-1", 1000)
	other := newClassifiedSwap("walletA", "sig-2", 2000)
	other.TokenMint = "OtherMint1111111111111111111111111111111111"

	require.NoError(t, store.Upsert(ctx, matching))
	require.NoError(t, store.Upsert(ctx, other))

	swaps, err := store.GetByWalletToken(ctx, "walletA", matching.TokenMint)
	require.NoError(t, err)
	require.Len(t, swaps, 1)
	assert.Equal(t, "sig-1", swaps[0].Signature)
}

func TestSwapStore_Exists(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, newClassifiedSwap("walletA", "sig-1", 1000)))

	exists, err := store.Exists(ctx, "walletA", "sig-1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "walletA", "sig-2")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = store.Exists(ctx, "walletB", "sig-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSwapStore_UpsertInvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.Upsert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, &domain.ClassifiedSwap{Wallet: "w"}), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.UpsertBulk(ctx, []*domain.ClassifiedSwap{{Signature: "s"}}), storage.ErrInvalidInput)
}
