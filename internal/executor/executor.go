// Package executor wraps the Jupiter aggregator's quote/swap/sign/submit
// sequence behind a uniform interface. Retries belong to callers; a quote or
// swap failure here is reported as-is. The dry-run mode never produces output
// that could be mistaken for a live execution.
package executor

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/ilkamo/jupiter-go/jupiter"
	"github.com/rs/zerolog"

	"solana-copydesk/internal/domain"
)

const lamportsPerSol = 1e9

// Quote is a priced swap route, ready for execution.
type Quote struct {
	InputMint  string
	OutputMint string
	InAmount   int64 // raw input units
	OutAmount  int64 // raw output units
	raw        jupiter.QuoteResponse
}

// SolPerToken returns the quote's implied price in SOL per whole token.
// tokenDecimals refers to the non-SOL leg. Returns 0 for a quote with no
// token output.
func (q *Quote) SolPerToken(tokenDecimals int) float64 {
	var solRaw, tokenRaw int64
	if q.InputMint == domain.SOLMint {
		solRaw, tokenRaw = q.InAmount, q.OutAmount
	} else {
		solRaw, tokenRaw = q.OutAmount, q.InAmount
	}
	if tokenRaw == 0 {
		return 0
	}
	sol := float64(solRaw) / lamportsPerSol
	tokens := float64(tokenRaw) / math.Pow10(tokenDecimals)
	return sol / tokens
}

// Executor quotes and executes swaps against an aggregator.
type Executor interface {
	// Quote prices a swap of amount raw input units from inputMint to
	// outputMint at the given slippage tolerance.
	Quote(ctx context.Context, inputMint, outputMint string, amount int64, slippageBps int) (*Quote, error)
	// Execute builds, signs and submits the swap described by a quote and
	// returns the transaction signature.
	Execute(ctx context.Context, q *Quote) (string, error)
	// DryRun reports whether Execute simulates instead of submitting.
	// Records produced from a dry-run executor must be labeled as such.
	DryRun() bool
}

// JupiterExecutor executes swaps through the Jupiter v6 swap API.
type JupiterExecutor struct {
	api    *jupiter.ClientWithResponses
	signer Signer
	logger zerolog.Logger
}

// NewJupiterExecutor creates an executor against the given Jupiter API URL.
// Pass jupiter.DefaultAPIURL for mainnet.
func NewJupiterExecutor(apiURL string, signer Signer, logger zerolog.Logger) (*JupiterExecutor, error) {
	api, err := jupiter.NewClientWithResponses(apiURL)
	if err != nil {
		return nil, fmt.Errorf("create jupiter client: %w", err)
	}
	return &JupiterExecutor{
		api:    api,
		signer: signer,
		logger: logger.With().Str("component", "executor").Logger(),
	}, nil
}

func (e *JupiterExecutor) Quote(ctx context.Context, inputMint, outputMint string, amount int64, slippageBps int) (*Quote, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("non-positive swap amount %d", amount)
	}

	resp, err := e.api.GetQuoteWithResponse(ctx, &jupiter.GetQuoteParams{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		Amount:      amount,
		SlippageBps: &slippageBps,
	})
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if resp.JSON200 == nil {
		return nil, fmt.Errorf("quote %s -> %s: unexpected response status %s", inputMint, outputMint, resp.Status())
	}

	q := resp.JSON200
	inAmount, err := strconv.ParseInt(q.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse quote inAmount %q: %w", q.InAmount, err)
	}
	outAmount, err := strconv.ParseInt(q.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse quote outAmount %q: %w", q.OutAmount, err)
	}

	return &Quote{
		InputMint:  inputMint,
		OutputMint: outputMint,
		InAmount:   inAmount,
		OutAmount:  outAmount,
		raw:        *q,
	}, nil
}

func (e *JupiterExecutor) Execute(ctx context.Context, q *Quote) (string, error) {
	prioritizationFee := jupiter.SwapRequest_PrioritizationFeeLamports{}
	if err := prioritizationFee.UnmarshalJSON([]byte(`"auto"`)); err != nil {
		return "", fmt.Errorf("set prioritization fee: %w", err)
	}
	dynamicComputeUnitLimit := true

	resp, err := e.api.PostSwapWithResponse(ctx, jupiter.PostSwapJSONRequestBody{
		QuoteResponse:             q.raw,
		UserPublicKey:             e.signer.PublicKey(),
		PrioritizationFeeLamports: &prioritizationFee,
		DynamicComputeUnitLimit:   &dynamicComputeUnitLimit,
	})
	if err != nil {
		return "", fmt.Errorf("build swap: %w", err)
	}
	if resp.JSON200 == nil {
		return "", fmt.Errorf("build swap: unexpected response status %s", resp.Status())
	}

	sig, err := e.signer.SignAndSend(ctx, resp.JSON200.SwapTransaction)
	if err != nil {
		return "", fmt.Errorf("submit swap: %w", err)
	}

	e.logger.Info().
		Str("input_mint", q.InputMint).
		Str("output_mint", q.OutputMint).
		Int64("in_amount", q.InAmount).
		Str("signature", sig).
		Msg("swap submitted")
	return sig, nil
}

func (e *JupiterExecutor) DryRun() bool { return false }

// SolToLamports converts a whole-SOL amount to lamports.
func SolToLamports(sol float64) int64 {
	return int64(math.Round(sol * lamportsPerSol))
}

// TokenUnits converts a UI token amount to raw base units for a mint with
// the given decimals.
func TokenUnits(uiAmount float64, decimals int) int64 {
	return int64(math.Round(uiAmount * math.Pow10(decimals)))
}

var _ Executor = (*JupiterExecutor)(nil)
