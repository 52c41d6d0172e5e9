// Package ledger owns the position lifecycle: open on first buy, weighted
// re-entry on subsequent buys, partial exit on sells, close with a one-time
// realized pnl computation. Mutations for one (user, token) are serialized
// by the storage layer's row locking; the ledger itself stays stateless.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/storage"
)

// amountDust is the residual quantity below which a position counts as
// fully exited.
const amountDust = 1e-9

// Ledger mutates positions in response to executed buys and sells.
type Ledger struct {
	positions storage.PositionStore
	logger    zerolog.Logger
}

// New creates a position ledger over the given store.
func New(positions storage.PositionStore, logger zerolog.Logger) *Ledger {
	return &Ledger{
		positions: positions,
		logger:    logger.With().Str("component", "ledger").Logger(),
	}
}

// Buy describes an executed buy to apply to the ledger.
type Buy struct {
	UserID        string
	TokenMint     string
	TokenSymbol   string
	TokenDecimals int
	TokenAmount   float64 // executed token quantity
	PriceSol      float64 // execution price, SOL per token

	// Thresholds applied only when this buy opens a new position.
	StopLossPercent   float64
	TakeProfitPercent float64
}

// Sell describes an executed sell to apply to the ledger.
type Sell struct {
	UserID      string
	TokenMint   string
	TokenAmount float64 // executed token quantity
	PriceSol    float64 // execution price, SOL per token
	SellPercent float64 // 100 forces a full close regardless of TokenAmount
}

// SellResult reports the position state after a sell.
type SellResult struct {
	Position       *domain.Position
	Closed         bool
	RealizedPnLSol float64 // meaningful only when Closed
}

// RecordBuy applies a buy: re-entry into an existing open position updates
// the weighted average; otherwise a new position opens with the execution
// price as both entry and average.
func (l *Ledger) RecordBuy(ctx context.Context, buy Buy) (*domain.Position, error) {
	if buy.TokenAmount <= 0 || buy.PriceSol <= 0 {
		return nil, storage.ErrInvalidInput
	}

	var updated *domain.Position
	err := l.positions.UpdateLocked(ctx, buy.UserID, buy.TokenMint, func(p *domain.Position) error {
		applyReentry(p, buy)
		updated = p
		return nil
	})
	if err == nil {
		l.logger.Info().
			Str("user", buy.UserID).
			Str("mint", buy.TokenMint).
			Float64("amount", updated.Amount).
			Float64("avg_buy_price", updated.AvgBuyPrice).
			Msg("position re-entry")
		return updated, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("re-entry update: %w", err)
	}

	now := time.Now().UnixMilli()
	pos := &domain.Position{
		UserID:            buy.UserID,
		TokenMint:         buy.TokenMint,
		TokenSymbol:       buy.TokenSymbol,
		TokenDecimals:     buy.TokenDecimals,
		Amount:            buy.TokenAmount,
		AvgBuyPrice:       buy.PriceSol,
		EntryPrice:        buy.PriceSol,
		CurrentPrice:      buy.PriceSol,
		StopLossPercent:   buy.StopLossPercent,
		TakeProfitPercent: buy.TakeProfitPercent,
		IsOpen:            true,
		OpenedAt:          now,
		UpdatedAt:         now,
	}
	if err := l.positions.Open(ctx, pos); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Lost the open race to a concurrent buy: fold into it.
			err = l.positions.UpdateLocked(ctx, buy.UserID, buy.TokenMint, func(p *domain.Position) error {
				applyReentry(p, buy)
				updated = p
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("re-entry after open race: %w", err)
			}
			return updated, nil
		}
		return nil, fmt.Errorf("open position: %w", err)
	}

	l.logger.Info().
		Str("user", buy.UserID).
		Str("mint", buy.TokenMint).
		Float64("amount", pos.Amount).
		Float64("entry_price", pos.EntryPrice).
		Msg("position opened")
	return pos, nil
}

// RecordSell applies a sell: a partial exit reduces the amount and leaves
// averages untouched; a full exit computes realized pnl once and closes the
// position. Returns storage.ErrNotFound when the user has no open position
// for the mint.
func (l *Ledger) RecordSell(ctx context.Context, sell Sell) (*SellResult, error) {
	if sell.TokenAmount < 0 || sell.PriceSol <= 0 {
		return nil, storage.ErrInvalidInput
	}

	result := &SellResult{}
	err := l.positions.UpdateLocked(ctx, sell.UserID, sell.TokenMint, func(p *domain.Position) error {
		soldAmount := sell.TokenAmount
		fullExit := sell.SellPercent >= 100 || p.Amount-soldAmount <= amountDust
		if fullExit {
			soldAmount = p.Amount
		}

		now := time.Now().UnixMilli()
		p.CurrentPrice = sell.PriceSol
		p.UpdatedAt = now

		if fullExit {
			proceeds := sell.PriceSol * soldAmount
			p.RealizedPnLSol = proceeds - p.AvgBuyPrice*soldAmount
			p.Amount = 0
			p.IsOpen = false
			p.UnrealizedPnLSol = 0
			p.UnrealizedPnLPercent = 0
			p.ClosedAt = &now

			result.Closed = true
			result.RealizedPnLSol = p.RealizedPnLSol
		} else {
			// avg_buy_price and entry_price are entry-side facts; a partial
			// exit does not touch them.
			p.Amount -= soldAmount
		}

		result.Position = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := l.logger.Info().
		Str("user", sell.UserID).
		Str("mint", sell.TokenMint)
	if result.Closed {
		event.Float64("realized_pnl_sol", result.RealizedPnLSol).Msg("position closed")
	} else {
		event.Float64("amount", result.Position.Amount).Msg("position reduced")
	}
	return result, nil
}

// applyReentry folds an additional buy into an open position: quantity adds
// up and the average re-weights; the entry price never moves.
func applyReentry(p *domain.Position, buy Buy) {
	newAmount := p.Amount + buy.TokenAmount
	p.AvgBuyPrice = (p.AvgBuyPrice*p.Amount + buy.PriceSol*buy.TokenAmount) / newAmount
	p.Amount = newAmount
	p.CurrentPrice = buy.PriceSol
	p.UpdatedAt = time.Now().UnixMilli()
}
