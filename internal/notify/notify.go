// Package notify delivers human-readable trade and alert messages.
// Delivery is fire-and-forget: callers log a failed Notify and move on,
// never letting it block or fail a ledger mutation.
package notify

import (
	"context"
	"fmt"
	"strings"

	"solana-copydesk/internal/domain"
)

// EventType names the notification categories the system emits.
type EventType string

const (
	EventCopyTradeExecuted EventType = "copy_trade_executed"
	EventCopyTradeFailed   EventType = "copy_trade_failed"
	EventStopLoss          EventType = "stop_loss"
	EventTakeProfit        EventType = "take_profit"
)

// Event is one notification payload.
type Event struct {
	Type        EventType
	UserID      string
	TokenSymbol string
	TokenMint   string
	TradeType   domain.TradeType
	AmountSol   float64
	PnLPercent  float64
	TxSignature string
	DryRun      bool
	Detail      string // error text for failure events
}

// Notifier delivers events to a human-facing channel.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Noop discards all events. Used when no channel is configured and in tests.
type Noop struct{}

func (Noop) Notify(context.Context, Event) error { return nil }

// Format renders an event as a plain-text message.
func Format(e Event) string {
	var b strings.Builder
	switch e.Type {
	case EventCopyTradeExecuted:
		fmt.Fprintf(&b, "Copy trade executed: %s %s for %.4f SOL", e.TradeType, symbolOrMint(e), e.AmountSol)
		if e.TxSignature != "" {
			fmt.Fprintf(&b, "\ntx: %s", e.TxSignature)
		}
	case EventCopyTradeFailed:
		fmt.Fprintf(&b, "Copy trade FAILED: %s %s for %.4f SOL", e.TradeType, symbolOrMint(e), e.AmountSol)
		if e.Detail != "" {
			fmt.Fprintf(&b, "\nreason: %s", e.Detail)
		}
	case EventStopLoss:
		fmt.Fprintf(&b, "Stop-loss triggered on %s at %.2f%%", symbolOrMint(e), e.PnLPercent)
	case EventTakeProfit:
		fmt.Fprintf(&b, "Take-profit triggered on %s at %+.2f%%", symbolOrMint(e), e.PnLPercent)
	default:
		fmt.Fprintf(&b, "%s: %s", e.Type, symbolOrMint(e))
	}
	if e.DryRun {
		b.WriteString("\n[dry run]")
	}
	return b.String()
}

func symbolOrMint(e Event) string {
	if e.TokenSymbol != "" {
		return e.TokenSymbol
	}
	return e.TokenMint
}

var _ Notifier = Noop{}
