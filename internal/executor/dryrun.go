package executor

import (
	"context"

	"github.com/google/uuid"
)

// DryRunPrefix marks simulated transaction signatures. A dry-run signature
// can never collide with a real one: Solana signatures are base58 and never
// contain a dash.
const DryRunPrefix = "dry-run-"

// DryRunExecutor quotes through a live executor but simulates execution.
type DryRunExecutor struct {
	inner Executor
}

// NewDryRun wraps an executor so that Execute returns a labeled synthetic
// signature instead of submitting a transaction.
func NewDryRun(inner Executor) *DryRunExecutor {
	return &DryRunExecutor{inner: inner}
}

func (d *DryRunExecutor) Quote(ctx context.Context, inputMint, outputMint string, amount int64, slippageBps int) (*Quote, error) {
	return d.inner.Quote(ctx, inputMint, outputMint, amount, slippageBps)
}

func (d *DryRunExecutor) Execute(_ context.Context, _ *Quote) (string, error) {
	return DryRunPrefix + uuid.NewString(), nil
}

func (d *DryRunExecutor) DryRun() bool { return true }

var _ Executor = (*DryRunExecutor)(nil)
