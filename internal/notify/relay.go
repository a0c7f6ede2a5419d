package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trade-dashboard-go/internal/store"
	"trade-dashboard-go/internal/telegram"
)

// Notifier translates trade lifecycle transitions into outbound chat
// messages. Every method is best-effort: persisted trade state is the
// source of truth and chat is a side-channel, so implementations log
// and swallow delivery failures instead of propagating them.
type Notifier interface {
	// SignalDetected announces a new signal and returns the message id
	// that threads all later updates for the trade. Returns 0 when the
	// announcement could not be delivered.
	SignalDetected(symbol, tradeType string) int64

	// SetupConfirmed announces the confirmed price levels, threaded
	// under replyTo when non-zero.
	SetupConfirmed(replyTo int64, levels store.Levels)

	// TradeReversed announces that an open trade was force-closed by a
	// newer setup on its symbol.
	TradeReversed(replyTo int64)

	// StatusUpdate announces a lifecycle transition with the reported
	// price and recomputed profit.
	StatusUpdate(replyTo int64, status string, price, points float64)
}

// Relay is the Telegram-backed Notifier. Each send runs under its own
// bounded timeout so a slow Bot API can never stall a request handler.
type Relay struct {
	client  telegram.ClientInterface
	logger  *zap.Logger
	timeout time.Duration
}

// ensure Relay implements the interface
var _ Notifier = (*Relay)(nil)

// NewRelay creates a Relay over a Telegram client.
func NewRelay(client telegram.ClientInterface, timeout time.Duration, logger *zap.Logger) *Relay {
	return &Relay{client: client, logger: logger, timeout: timeout}
}

func (r *Relay) SignalDetected(symbol, tradeType string) int64 {
	text := fmt.Sprintf("⚠️ *NEW SIGNAL*\nSymbol: %s\nType: %s\nTime: %s",
		telegram.EscapeMarkdown(symbol),
		telegram.EscapeMarkdown(tradeType),
		time.Now().UTC().Format(time.RFC3339))

	msgID := r.send(text, 0)
	return msgID
}

func (r *Relay) SetupConfirmed(replyTo int64, levels store.Levels) {
	text := fmt.Sprintf("📋 *SETUP CONFIRMED*\nEntry: %g\nSL: %g\nTP1: %g\nTP2: %g\nTP3: %g",
		levels.Entry, levels.SL, levels.TP1, levels.TP2, levels.TP3)
	r.send(text, replyTo)
}

func (r *Relay) TradeReversed(replyTo int64) {
	r.send("🔄 *Trade Reversed*\nClosed by new signal.", replyTo)
}

func (r *Relay) StatusUpdate(replyTo int64, status string, price, points float64) {
	// 5 decimals so raw forex points stay readable in the alert.
	text := fmt.Sprintf("⚡ *UPDATE: %s*\nPrice: %g\nProfit: %.5f",
		telegram.EscapeMarkdown(status), price, points)
	r.send(text, replyTo)
}

// send delivers one message and absorbs any failure.
func (r *Relay) send(text string, replyTo int64) int64 {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	msgID, err := r.client.SendMessage(ctx, text, replyTo)
	if err != nil {
		r.logger.Warn("Telegram notification dropped", zap.Error(err))
		return 0
	}
	return msgID
}

// NopNotifier is used when the Telegram channel is disabled in config.
type NopNotifier struct{}

var _ Notifier = (*NopNotifier)(nil)

func (NopNotifier) SignalDetected(string, string) int64 { return 0 }

func (NopNotifier) SetupConfirmed(int64, store.Levels) {}

func (NopNotifier) TradeReversed(int64) {}

func (NopNotifier) StatusUpdate(int64, string, float64, float64) {}
