package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/solana"
)

const (
	testWallet = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	testMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	otherMint  = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

// swapTx builds a transaction where the wallet's SOL balance moves by
// solDelta and its testMint balance moves by tokenDelta.
func swapTx(solDelta, tokenDelta float64, programIDs ...string) *solana.TransactionDetail {
	const preLamports = 5_000_000_000
	return &solana.TransactionDetail{
		Signature:    "sig-1",
		BlockTime:    1700000000,
		AccountKeys:  []string{testWallet},
		ProgramIDs:   programIDs,
		PreBalances:  []int64{preLamports},
		PostBalances: []int64{preLamports + int64(solDelta*1e9)},
		PreTokenBalances: []solana.TokenBalance{
			{AccountIndex: 1, Mint: testMint, Owner: testWallet, UIAmount: 2000, Decimals: 6},
		},
		PostTokenBalances: []solana.TokenBalance{
			{AccountIndex: 1, Mint: testMint, Owner: testWallet, UIAmount: 2000 + tokenDelta, Decimals: 6},
		},
	}
}

func TestClassify_Buy(t *testing.T) {
	tx := swapTx(-1.0, 1000, JupiterV6)

	swap := Classify(tx, testWallet)
	require.NotNil(t, swap)

	assert.Equal(t, domain.TradeTypeBuy, swap.Type)
	assert.Equal(t, testMint, swap.TokenMint)
	assert.InDelta(t, 1.0, swap.SolAmount, 1e-9)
	assert.InDelta(t, 1000.0, swap.TokenAmount, 1e-9)
	assert.Equal(t, domain.PlatformJupiter, swap.Platform)
	assert.Equal(t, testWallet, swap.Wallet)
	assert.Equal(t, 6, swap.TokenDecimals)
}

func TestClassify_Sell(t *testing.T) {
	tx := swapTx(1.0, -1000, RaydiumAMMV4)

	swap := Classify(tx, testWallet)
	require.NotNil(t, swap)

	assert.Equal(t, domain.TradeTypeSell, swap.Type)
	assert.InDelta(t, 1.0, swap.SolAmount, 1e-9)
	assert.InDelta(t, 1000.0, swap.TokenAmount, 1e-9)
	assert.Equal(t, domain.PlatformRaydium, swap.Platform)
}

func TestClassify_UnknownProgramReturnsNil(t *testing.T) {
	// Balance deltas look exactly like a buy, but no recognized venue.
	tx := swapTx(-1.0, 1000, "SomeUnknownProgram1111111111111111111111111")
	assert.Nil(t, Classify(tx, testWallet))
}

func TestClassify_FailedTransactionReturnsNil(t *testing.T) {
	tx := swapTx(-1.0, 1000, JupiterV6)
	tx.Err = map[string]interface{}{"InstructionError": []interface{}{0}}
	assert.Nil(t, Classify(tx, testWallet))
}

func TestClassify_SameDirectionLegsReturnNil(t *testing.T) {
	// SOL and token both increased: airdrop plus refund, not a swap.
	tx := swapTx(0.5, 1000, JupiterV6)
	assert.Nil(t, Classify(tx, testWallet))
}

func TestClassify_DustTokenChangeReturnsNil(t *testing.T) {
	tx := swapTx(-1.0, 1e-10, JupiterV6)
	assert.Nil(t, Classify(tx, testWallet))
}

func TestClassify_PicksDominantMintOnMultiHop(t *testing.T) {
	tx := swapTx(-1.0, 1000, JupiterV6)
	// A second mint with a smaller residual delta from an intermediate hop.
	tx.PreTokenBalances = append(tx.PreTokenBalances, solana.TokenBalance{
		AccountIndex: 2, Mint: otherMint, Owner: testWallet, UIAmount: 50,
	})
	tx.PostTokenBalances = append(tx.PostTokenBalances, solana.TokenBalance{
		AccountIndex: 2, Mint: otherMint, Owner: testWallet, UIAmount: 51,
	})

	swap := Classify(tx, testWallet)
	require.NotNil(t, swap)
	assert.Equal(t, testMint, swap.TokenMint)
	assert.InDelta(t, 1000.0, swap.TokenAmount, 1e-9)
}

func TestClassify_WrappedSolLegCountsAsSol(t *testing.T) {
	// Swap funded from a WSOL token account: native lamports barely move,
	// the WSOL account drains instead.
	tx := swapTx(-0.000005, 1000, PumpFun)
	tx.PreTokenBalances = append(tx.PreTokenBalances, solana.TokenBalance{
		AccountIndex: 3, Mint: domain.SOLMint, Owner: testWallet, UIAmount: 2.0,
	})
	tx.PostTokenBalances = append(tx.PostTokenBalances, solana.TokenBalance{
		AccountIndex: 3, Mint: domain.SOLMint, Owner: testWallet, UIAmount: 1.0,
	})

	swap := Classify(tx, testWallet)
	require.NotNil(t, swap)
	assert.Equal(t, domain.TradeTypeBuy, swap.Type)
	assert.InDelta(t, 1.000005, swap.SolAmount, 1e-6)
	assert.Equal(t, domain.PlatformPumpFun, swap.Platform)
}

func TestClassify_JupiterOutranksUnderlyingAMM(t *testing.T) {
	// Aggregator routes touch the venue program via CPI; the venue the user
	// interacted with is still Jupiter.
	tx := swapTx(-1.0, 1000, JupiterV6, RaydiumAMMV4)

	swap := Classify(tx, testWallet)
	require.NotNil(t, swap)
	assert.Equal(t, domain.PlatformJupiter, swap.Platform)
}

func TestClassify_NoTokenLegReturnsNil(t *testing.T) {
	tx := &solana.TransactionDetail{
		Signature:    "sig-2",
		AccountKeys:  []string{testWallet},
		ProgramIDs:   []string{JupiterV6},
		PreBalances:  []int64{5_000_000_000},
		PostBalances: []int64{4_000_000_000},
	}
	assert.Nil(t, Classify(tx, testWallet))
}
