// Package classify turns raw transaction records into classified swap events.
// Classification is pure and precision-over-recall: transactions that do not
// match a known DEX program, or whose balance diffs do not look like exactly
// one token leg against one SOL leg, yield no swap rather than a guess.
package classify

import (
	"math"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/solana"
)

// Known DEX program IDs.
const (
	// JupiterV6 is the Jupiter aggregator v6 program ID.
	JupiterV6 = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	// RaydiumAMMV4 is the Raydium AMM v4 program ID.
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// PumpFun is the pump.fun bonding curve program ID.
	PumpFun = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
)

// Dust thresholds below which a balance change is treated as noise.
const (
	solDust   = 1e-6
	tokenDust = 1e-9
)

const lamportsPerSol = 1e9

// platformByProgram maps known program ids to venues. Jupiter is checked
// first when ranking: an aggregator route also touches the underlying AMM,
// and the aggregator is the venue the user interacted with.
var platformByProgram = map[string]domain.Platform{
	JupiterV6:    domain.PlatformJupiter,
	RaydiumAMMV4: domain.PlatformRaydium,
	PumpFun:      domain.PlatformPumpFun,
}

var platformRank = map[domain.Platform]int{
	domain.PlatformJupiter: 0,
	domain.PlatformPumpFun: 1,
	domain.PlatformRaydium: 2,
}

// Classify inspects one transaction's balance diffs from the wallet's point
// of view and returns the detected swap, or nil when the transaction is not
// a swap this system understands.
func Classify(tx *solana.TransactionDetail, wallet string) *domain.ClassifiedSwap {
	if tx == nil || tx.Err != nil {
		return nil
	}

	platform := detectPlatform(tx.ProgramIDs)
	if platform == domain.PlatformUnknown {
		// Unknown venue: invisible rather than misclassified.
		return nil
	}

	solDelta := walletSolDelta(tx, wallet)
	mint, tokenDelta := walletTokenDelta(tx, wallet)
	if mint == "" {
		return nil
	}

	var tradeType domain.TradeType
	switch {
	case tokenDelta > tokenDust && solDelta < -solDust:
		tradeType = domain.TradeTypeBuy
	case tokenDelta < -tokenDust && solDelta > solDust:
		tradeType = domain.TradeTypeSell
	default:
		// Both legs moving the same way, or a dust-level change: not a swap.
		return nil
	}

	return &domain.ClassifiedSwap{
		Signature:     tx.Signature,
		Wallet:        wallet,
		BlockTime:     tx.BlockTime,
		Type:          tradeType,
		TokenMint:     mint,
		TokenDecimals: mintDecimals(tx, mint),
		TokenAmount:   math.Abs(tokenDelta),
		SolAmount:     math.Abs(solDelta),
		Platform:      platform,
	}
}

// detectPlatform returns the best-ranked known venue among the touched
// program ids, or PlatformUnknown when none match.
func detectPlatform(programIDs []string) domain.Platform {
	best := domain.PlatformUnknown
	bestRank := len(platformRank)
	for _, id := range programIDs {
		p, ok := platformByProgram[id]
		if !ok {
			continue
		}
		if r := platformRank[p]; r < bestRank {
			best = p
			bestRank = r
		}
	}
	return best
}

// walletSolDelta computes the wallet's net SOL change in whole-SOL units.
// Wrapped SOL moved through token accounts is included so swaps funded from
// a WSOL account classify the same as native transfers.
func walletSolDelta(tx *solana.TransactionDetail, wallet string) float64 {
	idx := tx.AccountIndexOf(wallet)
	var delta float64
	if idx >= 0 && idx < len(tx.PreBalances) && idx < len(tx.PostBalances) {
		delta = float64(tx.PostBalances[idx]-tx.PreBalances[idx]) / lamportsPerSol
	}

	pre := sumOwnedMint(tx.PreTokenBalances, wallet, domain.SOLMint)
	post := sumOwnedMint(tx.PostTokenBalances, wallet, domain.SOLMint)
	return delta + (post - pre)
}

// walletTokenDelta picks the swap's token leg: among non-SOL mints the
// wallet owns, the mint with the largest absolute net change. Multi-hop
// routes touching several mints therefore resolve deterministically to the
// dominant leg instead of inheriting upstream API ordering.
func walletTokenDelta(tx *solana.TransactionDetail, wallet string) (string, float64) {
	deltas := make(map[string]float64)
	for _, b := range tx.PreTokenBalances {
		if b.Owner == wallet && b.Mint != domain.SOLMint {
			deltas[b.Mint] -= b.UIAmount
		}
	}
	for _, b := range tx.PostTokenBalances {
		if b.Owner == wallet && b.Mint != domain.SOLMint {
			deltas[b.Mint] += b.UIAmount
		}
	}

	var (
		bestMint  string
		bestDelta float64
	)
	for mint, delta := range deltas {
		if math.Abs(delta) <= tokenDust {
			continue
		}
		if math.Abs(delta) > math.Abs(bestDelta) ||
			(math.Abs(delta) == math.Abs(bestDelta) && mint < bestMint) {
			bestMint = mint
			bestDelta = delta
		}
	}
	return bestMint, bestDelta
}

// mintDecimals looks up the mint's decimals from the transaction's token
// balance entries.
func mintDecimals(tx *solana.TransactionDetail, mint string) int {
	for _, b := range tx.PostTokenBalances {
		if b.Mint == mint {
			return b.Decimals
		}
	}
	for _, b := range tx.PreTokenBalances {
		if b.Mint == mint {
			return b.Decimals
		}
	}
	return 0
}

func sumOwnedMint(balances []solana.TokenBalance, owner, mint string) float64 {
	var total float64
	for _, b := range balances {
		if b.Owner == owner && b.Mint == mint {
			total += b.UIAmount
		}
	}
	return total
}
