// Package monitor re-prices open positions on a fixed interval and exits
// them automatically when a stop-loss or take-profit threshold is breached.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/enrich"
	"solana-copydesk/internal/executor"
	"solana-copydesk/internal/ledger"
	"solana-copydesk/internal/notify"
	"solana-copydesk/internal/observability"
	"solana-copydesk/internal/storage"
)

// AutoExitSlippageBps is the slippage tolerance for triggered exits. Wider
// than user-initiated trades so an automated exit does not fail merely
// because the market is moving through the threshold.
const AutoExitSlippageBps = 1500

// DefaultInterval is the default tick period.
const DefaultInterval = 30 * time.Second

// Monitor is the position control loop.
type Monitor struct {
	positions storage.PositionStore
	prices    enrich.PriceSource // must quote in SOL per token
	exec      executor.Executor
	ledger    *ledger.Ledger
	notifier  notify.Notifier
	logger    zerolog.Logger
	interval  time.Duration
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval overrides the tick period.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// New creates a position monitor. The price source must return prices in
// SOL per token, the unit entry prices are recorded in.
func New(
	positions storage.PositionStore,
	prices enrich.PriceSource,
	exec executor.Executor,
	led *ledger.Ledger,
	notifier notify.Notifier,
	logger zerolog.Logger,
	opts ...Option,
) *Monitor {
	m := &Monitor{
		positions: positions,
		prices:    prices,
		exec:      exec,
		ledger:    led,
		notifier:  notifier,
		logger:    logger.With().Str("component", "monitor").Logger(),
		interval:  DefaultInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run ticks until ctx is canceled. Cancellation stops scheduling further
// ticks; an in-flight tick completes.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info().Dur("interval", m.interval).Msg("position monitor started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("position monitor stopped")
			return
		case <-ticker.C:
			if err := m.Tick(context.WithoutCancel(ctx)); err != nil {
				m.logger.Error().Err(err).Msg("monitor tick failed")
			}
		}
	}
}

// Tick runs one monitoring pass: load every open position, batch-fetch
// current prices for the distinct mints, persist refreshed pricing for each
// position, and exit the ones whose thresholds tripped.
func (m *Monitor) Tick(ctx context.Context) error {
	open, err := m.positions.GetOpen(ctx)
	if err != nil {
		observability.RecordMonitorTick(0, err)
		return fmt.Errorf("load open positions: %w", err)
	}
	if len(open) == 0 {
		observability.RecordMonitorTick(0, nil)
		return nil
	}

	prices, err := m.prices.GetPrices(ctx, distinctMints(open))
	observability.RecordMonitorTick(len(open), err)
	if err != nil {
		return fmt.Errorf("fetch prices: %w", err)
	}

	for _, pos := range open {
		price, ok := prices[pos.TokenMint]
		if !ok || price <= 0 || pos.EntryPrice <= 0 {
			continue
		}

		pnlPercent := pos.PnLPercent(price)
		pnlSol := (price - pos.AvgBuyPrice) * pos.Amount

		// Refreshed pricing is persisted regardless of threshold state.
		if err := m.positions.RefreshPrice(ctx, pos.ID, price, pnlSol, pnlPercent); err != nil {
			m.logger.Warn().Err(err).Int64("position_id", pos.ID).Msg("refresh price failed")
		}

		// Stop-loss is evaluated before take-profit.
		switch {
		case pos.StopLossPercent > 0 && pnlPercent <= -pos.StopLossPercent:
			m.exit(ctx, pos, price, pnlPercent, notify.EventStopLoss)
		case pos.TakeProfitPercent > 0 && pnlPercent >= pos.TakeProfitPercent:
			m.exit(ctx, pos, price, pnlPercent, notify.EventTakeProfit)
		}
	}
	return nil
}

// exit sells 100% of a triggered position. Failures are logged and the
// position stays open for the next tick; there is no in-tick retry.
func (m *Monitor) exit(ctx context.Context, pos *domain.Position, price, pnlPercent float64, event notify.EventType) {
	m.logger.Info().
		Str("user", pos.UserID).
		Str("mint", pos.TokenMint).
		Float64("pnl_percent", pnlPercent).
		Str("trigger", string(event)).
		Msg("threshold breached, exiting position")

	// One event per triggered attempt, whether or not the exit lands.
	if err := m.notifier.Notify(ctx, notify.Event{
		Type:        event,
		UserID:      pos.UserID,
		TokenSymbol: pos.TokenSymbol,
		TokenMint:   pos.TokenMint,
		TradeType:   domain.TradeTypeSell,
		PnLPercent:  pnlPercent,
		DryRun:      m.exec.DryRun(),
	}); err != nil {
		m.logger.Warn().Err(err).Msg("notification delivery failed")
	}

	quote, err := m.exec.Quote(ctx, pos.TokenMint, domain.SOLMint,
		executor.TokenUnits(pos.Amount, pos.TokenDecimals), AutoExitSlippageBps)
	if err != nil {
		m.logger.Error().Err(err).Str("mint", pos.TokenMint).Msg("auto-exit quote failed, will retry next tick")
		return
	}
	sig, err := m.exec.Execute(ctx, quote)
	if err != nil {
		m.logger.Error().Err(err).Str("mint", pos.TokenMint).Msg("auto-exit swap failed, will retry next tick")
		return
	}

	observability.RecordAutoExit(string(event))

	exitPrice := quote.SolPerToken(pos.TokenDecimals)
	if exitPrice <= 0 {
		exitPrice = price
	}
	res, err := m.ledger.RecordSell(ctx, ledger.Sell{
		UserID:      pos.UserID,
		TokenMint:   pos.TokenMint,
		TokenAmount: pos.Amount,
		PriceSol:    exitPrice,
		SellPercent: 100,
	})
	if err != nil {
		m.logger.Error().Err(err).Str("mint", pos.TokenMint).Msg("ledger close failed after auto-exit")
		return
	}

	m.logger.Info().
		Str("user", pos.UserID).
		Str("mint", pos.TokenMint).
		Str("signature", sig).
		Float64("realized_pnl_sol", res.RealizedPnLSol).
		Msg("position auto-exited")
}

func distinctMints(positions []*domain.Position) []string {
	seen := make(map[string]struct{}, len(positions))
	mints := make([]string, 0, len(positions))
	for _, p := range positions {
		if _, ok := seen[p.TokenMint]; ok {
			continue
		}
		seen[p.TokenMint] = struct{}{}
		mints = append(mints, p.TokenMint)
	}
	return mints
}
