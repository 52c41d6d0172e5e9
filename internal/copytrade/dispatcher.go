// Package copytrade mirrors trades observed on followed wallets into the
// user's own account. Dispatch is at-most-once per observed source
// transaction, enforced by the copy_trades unique constraint rather than an
// application-level check.
package copytrade

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/executor"
	"solana-copydesk/internal/ledger"
	"solana-copydesk/internal/notify"
	"solana-copydesk/internal/observability"
	"solana-copydesk/internal/storage"
)

// Outcome is the result category of one dispatch attempt.
type Outcome string

const (
	// OutcomeDisabled means copy trading is off for the user; no record made.
	OutcomeDisabled Outcome = "disabled"
	// OutcomeAlreadyCopied means the source trade was mirrored before.
	OutcomeAlreadyCopied Outcome = "already_copied"
	// OutcomeNoPosition means a source sell found no open position to
	// mirror; a business rejection, not a failure, and no record is made.
	OutcomeNoPosition Outcome = "no_position"
	// OutcomeCompleted means the mirrored swap executed.
	OutcomeCompleted Outcome = "completed"
	// OutcomeFailed means execution failed; the record carries the error.
	OutcomeFailed Outcome = "failed"
)

const (
	defaultAttempts   = 3
	defaultRetryDelay = time.Second
)

// Dispatcher turns classified source swaps into mirrored executions.
type Dispatcher struct {
	settings  storage.SettingsStore
	trades    storage.CopyTradeStore
	positions storage.PositionStore
	exec      executor.Executor
	ledger    *ledger.Ledger
	notifier  notify.Notifier
	logger    zerolog.Logger

	attempts   int
	retryDelay time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRetry overrides the execution retry policy: attempts tries with
// linearly growing delay (delay, 2*delay, ...) between them.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(d *Dispatcher) {
		d.attempts = attempts
		d.retryDelay = delay
	}
}

// NewDispatcher wires a dispatcher over its collaborators.
func NewDispatcher(
	settings storage.SettingsStore,
	trades storage.CopyTradeStore,
	positions storage.PositionStore,
	exec executor.Executor,
	led *ledger.Ledger,
	notifier notify.Notifier,
	logger zerolog.Logger,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		settings:   settings,
		trades:     trades,
		positions:  positions,
		exec:       exec,
		ledger:     led,
		notifier:   notifier,
		logger:     logger.With().Str("component", "dispatcher").Logger(),
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch mirrors one observed source swap for the user. Preconditions are
// checked in order and short-circuit: settings enabled, then an open
// position for sells, then the at-most-once insert, then position
// sizing. The executing record is
// inserted before any execution attempt so a crash mid-swap leaves a
// recoverable record instead of nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, swap *domain.ClassifiedSwap) (Outcome, error) {
	started := time.Now()
	outcome, err := d.dispatch(ctx, userID, swap)
	if outcome != "" {
		observability.RecordCopyTrade(string(outcome), time.Since(started).Seconds())
	}
	return outcome, err
}

func (d *Dispatcher) dispatch(ctx context.Context, userID string, swap *domain.ClassifiedSwap) (Outcome, error) {
	settings, err := d.settings.Get(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return OutcomeDisabled, nil
	}
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}
	if !settings.IsEnabled {
		return OutcomeDisabled, nil
	}

	if swap.Type == domain.TradeTypeSell {
		if _, err := d.positions.GetOpenByUserToken(ctx, userID, swap.TokenMint); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return OutcomeNoPosition, nil
			}
			return "", fmt.Errorf("load position: %w", err)
		}
	}

	executedSol := math.Min(swap.SolAmount, settings.MaxPositionSol)

	now := time.Now().UnixMilli()
	record := &domain.CopyTrade{
		ID:                uuid.NewString(),
		UserID:            userID,
		SourceWallet:      swap.Wallet,
		SourceSignature:   swap.Signature,
		TokenMint:         swap.TokenMint,
		TokenSymbol:       swap.TokenSymbol,
		Type:              swap.Type,
		Platform:          swap.Platform,
		SourceAmountSol:   swap.SolAmount,
		ExecutedAmountSol: executedSol,
		Status:            domain.CopyStatusExecuting,
		DryRun:            d.exec.DryRun(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := d.trades.InsertExecuting(ctx, record); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return OutcomeAlreadyCopied, nil
		}
		return "", fmt.Errorf("insert copy trade: %w", err)
	}

	sig, execErr := d.execute(ctx, userID, swap, settings, executedSol)
	if execErr != nil {
		return d.fail(ctx, record, executedSol, execErr)
	}

	if err := d.trades.MarkCompleted(ctx, record.ID, sig); err != nil {
		// The swap is on chain; surface the bookkeeping failure loudly but
		// do not reclassify the outcome.
		d.logger.Error().Err(err).Str("copy_trade_id", record.ID).Msg("mark completed failed")
	}

	d.send(ctx, notify.Event{
		Type:        notify.EventCopyTradeExecuted,
		UserID:      userID,
		TokenSymbol: swap.TokenSymbol,
		TokenMint:   swap.TokenMint,
		TradeType:   swap.Type,
		AmountSol:   executedSol,
		TxSignature: sig,
		DryRun:      record.DryRun,
	})

	d.logger.Info().
		Str("user", userID).
		Str("source_signature", swap.Signature).
		Str("mint", swap.TokenMint).
		Float64("executed_sol", executedSol).
		Bool("dry_run", record.DryRun).
		Msg("copy trade completed")
	return OutcomeCompleted, nil
}

// execute runs the quote+swap+ledger sequence for one mirrored trade.
func (d *Dispatcher) execute(ctx context.Context, userID string, swap *domain.ClassifiedSwap, settings *domain.CopySettings, executedSol float64) (string, error) {
	switch swap.Type {
	case domain.TradeTypeBuy:
		return d.executeBuy(ctx, userID, swap, settings, executedSol)
	case domain.TradeTypeSell:
		return d.executeSell(ctx, userID, swap, settings, executedSol)
	default:
		return "", fmt.Errorf("unknown trade type %q", swap.Type)
	}
}

func (d *Dispatcher) executeBuy(ctx context.Context, userID string, swap *domain.ClassifiedSwap, settings *domain.CopySettings, executedSol float64) (string, error) {
	var quote *executor.Quote
	err := d.withRetry(ctx, func() error {
		var qErr error
		quote, qErr = d.exec.Quote(ctx, domain.SOLMint, swap.TokenMint,
			executor.SolToLamports(executedSol), settings.SlippageBps)
		return qErr
	})
	if err != nil {
		return "", err
	}

	var sig string
	err = d.withRetry(ctx, func() error {
		var eErr error
		sig, eErr = d.exec.Execute(ctx, quote)
		return eErr
	})
	if err != nil {
		return "", err
	}

	price := quote.SolPerToken(swap.TokenDecimals)
	tokenAmount := float64(quote.OutAmount) / math.Pow10(swap.TokenDecimals)
	if _, err := d.ledger.RecordBuy(ctx, ledger.Buy{
		UserID:            userID,
		TokenMint:         swap.TokenMint,
		TokenSymbol:       swap.TokenSymbol,
		TokenDecimals:     swap.TokenDecimals,
		TokenAmount:       tokenAmount,
		PriceSol:          price,
		StopLossPercent:   settings.StopLossPercent,
		TakeProfitPercent: settings.TakeProfitPercent,
	}); err != nil {
		d.logger.Error().Err(err).Str("user", userID).Str("mint", swap.TokenMint).Msg("ledger buy update failed")
	}
	return sig, nil
}

// executeSell mirrors a source sell proportionally: the sold quantity is
// sized so its value at the source's execution price equals the capped SOL
// amount, bounded by what the user actually holds.
func (d *Dispatcher) executeSell(ctx context.Context, userID string, swap *domain.ClassifiedSwap, settings *domain.CopySettings, executedSol float64) (string, error) {
	pos, err := d.positions.GetOpenByUserToken(ctx, userID, swap.TokenMint)
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("no open position in %s to sell", swap.TokenMint)
	}
	if err != nil {
		return "", fmt.Errorf("load position: %w", err)
	}

	if swap.TokenAmount <= 0 {
		return "", fmt.Errorf("source sell has no token amount")
	}
	sourcePrice := swap.SolAmount / swap.TokenAmount
	sellTokens := math.Min(executedSol/sourcePrice, pos.Amount)
	sellPercent := sellTokens / pos.Amount * 100

	var quote *executor.Quote
	err = d.withRetry(ctx, func() error {
		var qErr error
		quote, qErr = d.exec.Quote(ctx, swap.TokenMint, domain.SOLMint,
			executor.TokenUnits(sellTokens, pos.TokenDecimals), settings.SlippageBps)
		return qErr
	})
	if err != nil {
		return "", err
	}

	var sig string
	err = d.withRetry(ctx, func() error {
		var eErr error
		sig, eErr = d.exec.Execute(ctx, quote)
		return eErr
	})
	if err != nil {
		return "", err
	}

	if _, err := d.ledger.RecordSell(ctx, ledger.Sell{
		UserID:      userID,
		TokenMint:   swap.TokenMint,
		TokenAmount: sellTokens,
		PriceSol:    quote.SolPerToken(pos.TokenDecimals),
		SellPercent: sellPercent,
	}); err != nil {
		d.logger.Error().Err(err).Str("user", userID).Str("mint", swap.TokenMint).Msg("ledger sell update failed")
	}
	return sig, nil
}

// fail transitions the record to failed and always attempts the failure
// notification, even when the status update itself errors.
func (d *Dispatcher) fail(ctx context.Context, record *domain.CopyTrade, executedSol float64, execErr error) (Outcome, error) {
	if err := d.trades.MarkFailed(ctx, record.ID, execErr.Error()); err != nil {
		d.logger.Error().Err(err).Str("copy_trade_id", record.ID).Msg("mark failed failed")
	}

	d.send(ctx, notify.Event{
		Type:        notify.EventCopyTradeFailed,
		UserID:      record.UserID,
		TokenSymbol: record.TokenSymbol,
		TokenMint:   record.TokenMint,
		TradeType:   record.Type,
		AmountSol:   executedSol,
		DryRun:      record.DryRun,
		Detail:      execErr.Error(),
	})

	d.logger.Warn().
		Err(execErr).
		Str("user", record.UserID).
		Str("source_signature", record.SourceSignature).
		Msg("copy trade failed")
	return OutcomeFailed, nil
}

func (d *Dispatcher) send(ctx context.Context, event notify.Event) {
	if err := d.notifier.Notify(ctx, event); err != nil {
		d.logger.Warn().Err(err).Str("type", string(event.Type)).Msg("notification delivery failed")
	}
}

// withRetry runs fn up to the configured attempts with a linearly growing
// pause between tries.
func (d *Dispatcher) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == d.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * d.retryDelay):
		}
	}
	return lastErr
}
