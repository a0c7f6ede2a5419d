package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"trade-dashboard-go/internal/store"
)

// fakeTelegram records sent messages and can simulate delivery failure.
type fakeTelegram struct {
	fail      bool
	nextMsgID int64
	texts     []string
	replyTos  []int64
}

func (f *fakeTelegram) GetMe(ctx context.Context) (string, error) { return "fake_bot", nil }

func (f *fakeTelegram) SendMessage(ctx context.Context, text string, replyTo int64) (int64, error) {
	if f.fail {
		return 0, errors.New("telegram unavailable")
	}
	f.texts = append(f.texts, text)
	f.replyTos = append(f.replyTos, replyTo)
	f.nextMsgID++
	return f.nextMsgID, nil
}

func newTestRelay(client *fakeTelegram) *Relay {
	return NewRelay(client, time.Second, zap.NewNop())
}

func TestSignalDetectedReturnsMessageID(t *testing.T) {
	client := &fakeTelegram{}
	relay := newTestRelay(client)

	msgID := relay.SignalDetected("EURUSD", "BUY")

	assert.Equal(t, int64(1), msgID)
	assert.Contains(t, client.texts[0], "NEW SIGNAL")
	assert.Contains(t, client.texts[0], "EURUSD")
	assert.Equal(t, int64(0), client.replyTos[0], "signal message is unthreaded")
}

func TestSignalDetectedEscapesSymbol(t *testing.T) {
	client := &fakeTelegram{}
	relay := newTestRelay(client)

	relay.SignalDetected("GBP_USD", "SELL")

	assert.Contains(t, client.texts[0], `GBP\_USD`)
}

func TestDeliveryFailureIsSwallowed(t *testing.T) {
	client := &fakeTelegram{fail: true}
	relay := newTestRelay(client)

	msgID := relay.SignalDetected("EURUSD", "BUY")
	assert.Equal(t, int64(0), msgID)

	// None of these may panic or propagate the failure.
	relay.SetupConfirmed(7, store.Levels{Entry: 1.1})
	relay.TradeReversed(7)
	relay.StatusUpdate(7, "TP1_HIT", 1.11, 0.01)
}

func TestUpdatesAreThreaded(t *testing.T) {
	client := &fakeTelegram{}
	relay := newTestRelay(client)

	relay.SetupConfirmed(42, store.Levels{Entry: 1.1, SL: 1.09, TP1: 1.11, TP2: 1.12, TP3: 1.13})
	relay.TradeReversed(42)
	relay.StatusUpdate(42, "TP1_HIT", 1.11, 0.01)

	assert.Equal(t, []int64{42, 42, 42}, client.replyTos)
	assert.Contains(t, client.texts[0], "SETUP CONFIRMED")
	assert.Contains(t, client.texts[0], "1.09")
	assert.Contains(t, client.texts[1], "Trade Reversed")
	assert.Contains(t, client.texts[2], "UPDATE: TP1\\_HIT")
	assert.Contains(t, client.texts[2], "0.01000", "profit renders with 5 decimals")
}
