package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/storage/memory"
)

const testWallet = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

type testEnv struct {
	server    *Server
	wallets   *memory.FollowedWalletStore
	swaps     *memory.SwapStore
	positions *memory.PositionStore
	trades    *memory.CopyTradeStore
	settings  *memory.SettingsStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		wallets:   memory.NewFollowedWalletStore(),
		swaps:     memory.NewSwapStore(),
		positions: memory.NewPositionStore(),
		trades:    memory.NewCopyTradeStore(),
		settings:  memory.NewSettingsStore(),
	}
	env.server = NewServer(
		DefaultConfig("127.0.0.1", "0"),
		env.wallets, env.swaps, env.positions, env.trades, env.settings,
		nil, nil,
		zerolog.Nop(),
	)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestFollowWalletLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/alice/wallets",
		followWalletRequest{Address: testWallet, Label: "degen one"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[walletResponse](t, rec)
	assert.Equal(t, "alice", created.UserID)
	assert.Equal(t, testWallet, created.Address)
	assert.True(t, created.IsActive)

	rec = env.do(t, http.MethodGet, "/api/v1/users/alice/wallets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeBody[[]walletResponse](t, rec)
	require.Len(t, listed, 1)
	assert.Equal(t, "degen one", listed[0].Label)

	rec = env.do(t, http.MethodDelete, "/api/v1/users/alice/wallets/"+testWallet, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deactivated := decodeBody[walletResponse](t, rec)
	assert.False(t, deactivated.IsActive)

	rec = env.do(t, http.MethodDelete, "/api/v1/users/alice/wallets/"+testWallet, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "unfollow is idempotent on followed wallets")
}

func TestFollowWalletRejectsBadAddress(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/alice/wallets",
		followWalletRequest{Address: "not-base58"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/users/alice/wallets",
		followWalletRequest{Address: "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "program derived addresses are not wallets")
}

func TestUnfollowUnknownWallet(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/api/v1/users/alice/wallets/"+testWallet, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func seedSwap(t *testing.T, env *testEnv, signature string, tradeType domain.TradeType, sol float64, blockTime int64) {
	t.Helper()
	require.NoError(t, env.swaps.Upsert(context.Background(), &domain.ClassifiedSwap{
		Signature:     signature,
		Wallet:        testWallet,
		BlockTime:     blockTime,
		Type:          tradeType,
		TokenMint:     "TokenMint1111111111111111111111111111111111",
		TokenSymbol:   "TEST",
		TokenDecimals: 6,
		TokenAmount:   1000,
		SolAmount:     sol,
		Platform:      domain.PlatformJupiter,
		CreatedAt:     time.Now().UnixMilli(),
	}))
}

func TestWalletSummary(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().Unix()
	seedSwap(t, env, "sig-buy", domain.TradeTypeBuy, 2.0, now-3600)
	seedSwap(t, env, "sig-sell", domain.TradeTypeSell, 3.5, now-1800)

	rec := env.do(t, http.MethodGet, "/api/v1/wallets/"+testWallet+"/summary", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[walletSummaryResponse](t, rec)
	assert.Equal(t, testWallet, summary.Wallet)
	assert.Equal(t, "7xKX...gAsU", summary.DisplayWallet)
	assert.Equal(t, 2, summary.TotalTrades)
	assert.Equal(t, 1, summary.TotalBuys)
	assert.Equal(t, 1, summary.TotalSells)
	assert.InDelta(t, 1.5, summary.TotalPnLSol, 1e-9)
	require.Len(t, summary.TopTokens, 1)
	assert.Equal(t, "TEST", summary.TopTokens[0].TokenSymbol)
	require.Len(t, summary.Platforms, 1)
	assert.Equal(t, string(domain.PlatformJupiter), summary.Platforms[0].Platform)
	assert.NotEmpty(t, summary.DailyPnL)
}

func TestWalletSummaryRejectsBadAddress(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/wallets/nonsense/summary", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWalletSwapsLimit(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().Unix()
	for i := 0; i < 5; i++ {
		seedSwap(t, env, fmt.Sprintf("sig-%d", i), domain.TradeTypeBuy, 1.0, now-int64(i)*60)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/wallets/"+testWallet+"/swaps?limit=3", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	swaps := decodeBody[[]swapResponse](t, rec)
	require.Len(t, swaps, 3)
	assert.Equal(t, "sig-0", swaps[0].Signature, "newest first")
}

func TestListPositions(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.positions.Open(context.Background(), &domain.Position{
		UserID:      "alice",
		TokenMint:   "TokenMint1111111111111111111111111111111111",
		TokenSymbol: "TEST",
		Amount:      1000,
		AvgBuyPrice: 0.002,
		EntryPrice:  0.002,
		IsOpen:      true,
		OpenedAt:    time.Now().UnixMilli(),
	}))

	rec := env.do(t, http.MethodGet, "/api/v1/users/alice/positions", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	positions := decodeBody[[]positionResponse](t, rec)
	require.Len(t, positions, 1)
	assert.True(t, positions[0].IsOpen)
	assert.InDelta(t, 0.002, positions[0].EntryPrice, 1e-12)

	rec = env.do(t, http.MethodGet, "/api/v1/users/bob/positions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]positionResponse](t, rec))
}

func TestListCopyTrades(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.trades.InsertExecuting(context.Background(), &domain.CopyTrade{
		ID:              "11111111-2222-3333-4444-555555555555",
		UserID:          "alice",
		SourceWallet:    testWallet,
		SourceSignature: "sig-src",
		TokenMint:       "TokenMint1111111111111111111111111111111111",
		Type:            domain.TradeTypeBuy,
		SourceAmountSol: 2.0,
		Status:          domain.CopyStatusExecuting,
		DryRun:          true,
		CreatedAt:       time.Now().UnixMilli(),
	}))

	rec := env.do(t, http.MethodGet, "/api/v1/users/alice/copy-trades", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	trades := decodeBody[[]copyTradeResponse](t, rec)
	require.Len(t, trades, 1)
	assert.Equal(t, string(domain.CopyStatusExecuting), trades[0].Status)
	assert.True(t, trades[0].DryRun)
}

func TestSettingsRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/users/alice/settings", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/users/alice/settings", settingsRequest{
		IsEnabled:         true,
		MaxPositionSol:    0.5,
		SlippageBps:       1200,
		StopLossPercent:   30,
		TakeProfitPercent: 100,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/users/alice/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decodeBody[settingsResponse](t, rec)
	assert.True(t, settings.IsEnabled)
	assert.InDelta(t, 0.5, settings.MaxPositionSol, 1e-12)
	assert.Equal(t, 1200, settings.SlippageBps)
}

func TestPutSettingsRejectsNegatives(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/v1/users/alice/settings", settingsRequest{
		MaxPositionSol: -1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsWithoutFeed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/events", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
