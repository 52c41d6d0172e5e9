package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"solana-copydesk/internal/classify"
	"solana-copydesk/internal/copytrade"
	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/solana"
	"solana-copydesk/internal/storage/memory"
)

const (
	testUser   = "user-1"
	testWallet = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	testMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

type fakeRPC struct {
	mu        sync.Mutex
	sigs      []solana.SignatureInfo
	sigsErr   error
	sigsCalls int
	txs       map[string]*solana.TransactionDetail
	txErrs    map[string]error
}

func (f *fakeRPC) GetSignaturesForAddress(_ context.Context, _ string, _ *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sigsCalls++
	if f.sigsErr != nil {
		return nil, f.sigsErr
	}
	return f.sigs, nil
}

func (f *fakeRPC) GetTransaction(_ context.Context, signature string) (*solana.TransactionDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.txErrs[signature]; err != nil {
		return nil, err
	}
	return f.txs[signature], nil
}

type noopEnricher struct{ calls int }

func (n *noopEnricher) Enrich(_ context.Context, swaps []*domain.ClassifiedSwap) error {
	n.calls++
	for _, s := range swaps {
		s.TokenSymbol = "SYM"
	}
	return nil
}

type dispatchCall struct {
	userID    string
	signature string
}

type recordingDispatcher struct {
	mu         sync.Mutex
	dispatched []dispatchCall
}

func (r *recordingDispatcher) Dispatch(_ context.Context, userID string, swap *domain.ClassifiedSwap) (copytrade.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatched = append(r.dispatched, dispatchCall{userID: userID, signature: swap.Signature})
	return copytrade.OutcomeCompleted, nil
}

func (r *recordingDispatcher) usersDispatched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]string, 0, len(r.dispatched))
	for _, call := range r.dispatched {
		users = append(users, call.userID)
	}
	return users
}

// buyTx is a transaction that classifies as a 1 SOL buy of testMint.
func buyTx(signature string) *solana.TransactionDetail {
	const preLamports = 5_000_000_000
	return &solana.TransactionDetail{
		Signature:    signature,
		BlockTime:    1700000000,
		AccountKeys:  []string{testWallet},
		ProgramIDs:   []string{classify.JupiterV6},
		PreBalances:  []int64{preLamports},
		PostBalances: []int64{preLamports - 1_000_000_000},
		PostTokenBalances: []solana.TokenBalance{
			{AccountIndex: 1, Mint: testMint, Owner: testWallet, UIAmount: 1000, Decimals: 6},
		},
	}
}

type fixture struct {
	scanner    *Scanner
	rpc        *fakeRPC
	swaps      *memory.SwapStore
	archive    *memory.SwapArchiveStore
	wallets    *memory.FollowedWalletStore
	enricher   *noopEnricher
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		rpc:        &fakeRPC{txs: map[string]*solana.TransactionDetail{}, txErrs: map[string]error{}},
		swaps:      memory.NewSwapStore(),
		archive:    memory.NewSwapArchiveStore(),
		wallets:    memory.NewFollowedWalletStore(),
		enricher:   &noopEnricher{},
		dispatcher: &recordingDispatcher{},
	}
	f.scanner = New(
		f.rpc, f.swaps, f.archive, f.wallets, f.enricher, f.dispatcher,
		rate.NewLimiter(rate.Inf, 1), zerolog.Nop(),
	)
	f.scanner.retryWait = 0
	return f
}

func TestScanWallet_StoresEnrichesAndDispatches(t *testing.T) {
	f := newFixture(t)
	f.rpc.sigs = []solana.SignatureInfo{{Signature: "sig-1"}, {Signature: "sig-2"}}
	f.rpc.txs["sig-1"] = buyTx("sig-1")
	f.rpc.txs["sig-2"] = buyTx("sig-2")

	swaps, err := f.scanner.ScanWallet(context.Background(), testWallet, []string{testUser})
	require.NoError(t, err)
	assert.Len(t, swaps, 2)
	assert.Equal(t, "SYM", swaps[0].TokenSymbol)

	stored, err := f.swaps.GetByWallet(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	assert.Len(t, f.dispatcher.dispatched, 2)
	assert.Equal(t, 1, f.enricher.calls)
}

func TestScanWallet_SkipsKnownSignatures(t *testing.T) {
	f := newFixture(t)
	f.rpc.sigs = []solana.SignatureInfo{{Signature: "sig-1"}}
	f.rpc.txs["sig-1"] = buyTx("sig-1")
	ctx := context.Background()

	_, err := f.scanner.ScanWallet(ctx, testWallet, []string{testUser})
	require.NoError(t, err)

	swaps, err := f.scanner.ScanWallet(ctx, testWallet, []string{testUser})
	require.NoError(t, err)
	assert.Empty(t, swaps, "already stored signature not reprocessed")
	assert.Len(t, f.dispatcher.dispatched, 1, "no second dispatch")
}

func TestScanWallet_IgnoresFailedSourceTransactions(t *testing.T) {
	f := newFixture(t)
	f.rpc.sigs = []solana.SignatureInfo{
		{Signature: "sig-ok"},
		{Signature: "sig-failed", Err: map[string]interface{}{"InstructionError": []interface{}{}}},
	}
	f.rpc.txs["sig-ok"] = buyTx("sig-ok")

	swaps, err := f.scanner.ScanWallet(context.Background(), testWallet, []string{testUser})
	require.NoError(t, err)
	require.Len(t, swaps, 1)
	assert.Equal(t, "sig-ok", swaps[0].Signature)
}

func TestScanWallet_FetchFailureSkipsSignatureOnly(t *testing.T) {
	f := newFixture(t)
	f.rpc.sigs = []solana.SignatureInfo{{Signature: "sig-ok"}, {Signature: "sig-broken"}}
	f.rpc.txs["sig-ok"] = buyTx("sig-ok")
	f.rpc.txErrs["sig-broken"] = errors.New("rpc timeout")

	swaps, err := f.scanner.ScanWallet(context.Background(), testWallet, []string{testUser})
	require.NoError(t, err)
	require.Len(t, swaps, 1)
	assert.Equal(t, "sig-ok", swaps[0].Signature)

	// The broken signature was never stored, so a later scan retries it.
	known, err := f.swaps.Exists(context.Background(), testWallet, "sig-broken")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestScanWallet_UpstreamExhaustionKeepsLastGood(t *testing.T) {
	f := newFixture(t)
	f.rpc.sigs = []solana.SignatureInfo{{Signature: "sig-1"}}
	f.rpc.txs["sig-1"] = buyTx("sig-1")
	ctx := context.Background()

	first, err := f.scanner.ScanWallet(ctx, testWallet, []string{testUser})
	require.NoError(t, err)
	require.Len(t, first, 1)

	f.rpc.mu.Lock()
	f.rpc.sigsErr = errors.New("all endpoints failed")
	f.rpc.mu.Unlock()

	_, err = f.scanner.ScanWallet(ctx, testWallet, []string{testUser})
	assert.Error(t, err)
	assert.Len(t, f.scanner.Results(testWallet), 1, "previous results retained")
}

func TestScanAll_TouchesScanTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.wallets.Upsert(ctx, &domain.FollowedWallet{
		UserID: testUser, Address: testWallet, Label: "whale", IsActive: true,
	}))
	f.rpc.sigs = []solana.SignatureInfo{{Signature: "sig-1"}}
	f.rpc.txs["sig-1"] = buyTx("sig-1")

	require.NoError(t, f.scanner.ScanAll(ctx))

	wallets, err := f.wallets.GetByUser(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Greater(t, wallets[0].LastScanAt, int64(0))
}

func TestScanWallet_TracksPresence(t *testing.T) {
	f := newFixture(t)
	f.rpc.sigs = []solana.SignatureInfo{{Signature: "sig-1"}}
	f.rpc.txs["sig-1"] = buyTx("sig-1")

	_, err := f.scanner.ScanWallet(context.Background(), testWallet, []string{testUser})
	require.NoError(t, err)

	presence := f.scanner.Presence()
	require.Contains(t, presence, testMint)
	assert.Equal(t, 1, presence[testMint].ScanCount)
}

func TestScanAll_SharedWalletFansOutToEveryFollower(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.wallets.Upsert(ctx, &domain.FollowedWallet{
		UserID: "user-a", Address: testWallet, IsActive: true,
	}))
	require.NoError(t, f.wallets.Upsert(ctx, &domain.FollowedWallet{
		UserID: "user-b", Address: testWallet, IsActive: true,
	}))
	f.rpc.sigs = []solana.SignatureInfo{{Signature: "sig-1"}}
	f.rpc.txs["sig-1"] = buyTx("sig-1")

	require.NoError(t, f.scanner.ScanAll(ctx))

	assert.ElementsMatch(t, []string{"user-a", "user-b"}, f.dispatcher.usersDispatched(),
		"every follower gets the new swap")
	assert.Equal(t, 1, f.rpc.sigsCalls, "shared wallet fetched once")

	for _, userID := range []string{"user-a", "user-b"} {
		wallets, err := f.wallets.GetByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, wallets, 1)
		assert.Greater(t, wallets[0].LastScanAt, int64(0))
	}
}
