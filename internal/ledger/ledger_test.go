package ledger

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copydesk/internal/storage"
	"solana-copydesk/internal/storage/memory"
)

const (
	testUser = "user-1"
	testMint = "MintAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
)

func newLedger() (*Ledger, *memory.PositionStore) {
	store := memory.NewPositionStore()
	return New(store, zerolog.Nop()), store
}

func TestRecordBuy_OpensNewPosition(t *testing.T) {
	l, store := newLedger()
	ctx := context.Background()

	pos, err := l.RecordBuy(ctx, Buy{
		UserID:            testUser,
		TokenMint:         testMint,
		TokenSymbol:       "BONK",
		TokenAmount:       100,
		PriceSol:          1.0,
		StopLossPercent:   20,
		TakeProfitPercent: 50,
	})
	require.NoError(t, err)

	assert.True(t, pos.IsOpen)
	assert.Equal(t, 100.0, pos.Amount)
	assert.Equal(t, 1.0, pos.AvgBuyPrice)
	assert.Equal(t, 1.0, pos.EntryPrice)
	assert.Equal(t, 20.0, pos.StopLossPercent)
	assert.Equal(t, 50.0, pos.TakeProfitPercent)

	got, err := store.GetOpenByUserToken(ctx, testUser, testMint)
	require.NoError(t, err)
	assert.Equal(t, pos.ID, got.ID)
}

func TestRecordBuy_ReentryReweightsAverage(t *testing.T) {
	l, _ := newLedger()
	ctx := context.Background()

	_, err := l.RecordBuy(ctx, Buy{UserID: testUser, TokenMint: testMint, TokenAmount: 100, PriceSol: 1.0})
	require.NoError(t, err)

	pos, err := l.RecordBuy(ctx, Buy{UserID: testUser, TokenMint: testMint, TokenAmount: 100, PriceSol: 3.0})
	require.NoError(t, err)

	assert.Equal(t, 200.0, pos.Amount)
	assert.Equal(t, 2.0, pos.AvgBuyPrice)
	assert.Equal(t, 1.0, pos.EntryPrice, "entry price never moves on re-entry")
	assert.Equal(t, 3.0, pos.CurrentPrice)
}

func TestRecordBuy_InvalidInput(t *testing.T) {
	l, _ := newLedger()

	_, err := l.RecordBuy(context.Background(), Buy{UserID: testUser, TokenMint: testMint, TokenAmount: 0, PriceSol: 1.0})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = l.RecordBuy(context.Background(), Buy{UserID: testUser, TokenMint: testMint, TokenAmount: 10, PriceSol: 0})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestRecordSell_FullExitRealizesPnL(t *testing.T) {
	l, store := newLedger()
	ctx := context.Background()

	_, err := l.RecordBuy(ctx, Buy{UserID: testUser, TokenMint: testMint, TokenAmount: 100, PriceSol: 1.0})
	require.NoError(t, err)
	_, err = l.RecordBuy(ctx, Buy{UserID: testUser, TokenMint: testMint, TokenAmount: 100, PriceSol: 3.0})
	require.NoError(t, err)

	res, err := l.RecordSell(ctx, Sell{
		UserID:      testUser,
		TokenMint:   testMint,
		TokenAmount: 200,
		PriceSol:    2.5,
		SellPercent: 100,
	})
	require.NoError(t, err)

	assert.True(t, res.Closed)
	// proceeds 2.5*200 = 500 against cost 2.0*200 = 400
	assert.InDelta(t, 100.0, res.RealizedPnLSol, 1e-9)
	assert.False(t, res.Position.IsOpen)
	assert.Equal(t, 0.0, res.Position.Amount)
	require.NotNil(t, res.Position.ClosedAt)

	_, err = store.GetOpenByUserToken(ctx, testUser, testMint)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecordSell_PartialExitKeepsAverages(t *testing.T) {
	l, _ := newLedger()
	ctx := context.Background()

	_, err := l.RecordBuy(ctx, Buy{UserID: testUser, TokenMint: testMint, TokenAmount: 200, PriceSol: 2.0})
	require.NoError(t, err)

	res, err := l.RecordSell(ctx, Sell{
		UserID:      testUser,
		TokenMint:   testMint,
		TokenAmount: 50,
		PriceSol:    4.0,
		SellPercent: 25,
	})
	require.NoError(t, err)

	assert.False(t, res.Closed)
	assert.True(t, res.Position.IsOpen)
	assert.Equal(t, 150.0, res.Position.Amount)
	assert.Equal(t, 2.0, res.Position.AvgBuyPrice)
	assert.Equal(t, 2.0, res.Position.EntryPrice)
	assert.Equal(t, 4.0, res.Position.CurrentPrice)
}

func TestRecordSell_DustRemainderClosesPosition(t *testing.T) {
	l, _ := newLedger()
	ctx := context.Background()

	_, err := l.RecordBuy(ctx, Buy{UserID: testUser, TokenMint: testMint, TokenAmount: 100, PriceSol: 1.0})
	require.NoError(t, err)

	// Selling everything but a sub-dust residue counts as a full exit.
	res, err := l.RecordSell(ctx, Sell{
		UserID:      testUser,
		TokenMint:   testMint,
		TokenAmount: 100 - 1e-12,
		PriceSol:    1.5,
		SellPercent: 99,
	})
	require.NoError(t, err)

	assert.True(t, res.Closed)
	assert.InDelta(t, 50.0, res.RealizedPnLSol, 1e-6)
}

func TestRecordSell_NoOpenPosition(t *testing.T) {
	l, _ := newLedger()

	_, err := l.RecordSell(context.Background(), Sell{
		UserID:      testUser,
		TokenMint:   testMint,
		TokenAmount: 10,
		PriceSol:    1.0,
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
