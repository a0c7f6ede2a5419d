package service

import (
	"fmt"

	"go.uber.org/zap"

	"trade-dashboard-go/internal/config"
	"trade-dashboard-go/internal/lifecycle"
	"trade-dashboard-go/internal/models"
	"trade-dashboard-go/internal/notify"
	"trade-dashboard-go/internal/store"
)

// Broadcaster wakes connected dashboard viewers so they re-fetch the
// trade list. Emission is fire-and-forget.
type Broadcaster interface {
	Broadcast()
}

// TradeService applies lifecycle events to the trade record store and
// coordinates the side-channels (chat notifications, viewer refresh).
// All dependencies are injected; there are no package-level singletons.
type TradeService struct {
	logger    *zap.Logger
	store     *store.Store
	notifier  notify.Notifier
	broadcast Broadcaster
	retention config.Retention
}

// NewTradeService creates a TradeService.
func NewTradeService(logger *zap.Logger, st *store.Store, notifier notify.Notifier, broadcast Broadcaster, retention config.Retention) *TradeService {
	return &TradeService{
		logger:    logger,
		store:     st,
		notifier:  notifier,
		broadcast: broadcast,
		retention: retention,
	}
}

// ListTrades returns the trades within the retention window, newest first.
func (s *TradeService) ListTrades() ([]models.Trade, error) {
	return s.store.ListRecent(s.retention.MaxAgeDays, s.retention.MaxRows)
}

// SignalDetected records the first sighting of a trade. The chat
// announcement goes out first so its message id can seed the trade's
// reply thread; if the trade_id already exists, creation is a no-op and
// the stored message id is left alone.
func (s *TradeService) SignalDetected(tradeID, symbol, tradeType string) error {
	msgID := s.notifier.SignalDetected(symbol, tradeType)

	if err := s.store.UpsertSignal(tradeID, symbol, tradeType, msgID); err != nil {
		return fmt.Errorf("signal_detected %s: %w", tradeID, err)
	}

	// Opportunistic retention sweep; signal ingestion is the one event
	// guaranteed to happen regularly while the system is in use.
	if purged, err := s.store.PurgeOlderThan(s.retention.MaxAgeDays); err != nil {
		s.logger.Warn("Retention sweep failed", zap.Error(err))
	} else if purged > 0 {
		s.logger.Info("Purged expired trades", zap.Int64("count", purged))
	}

	s.broadcast.Broadcast()
	return nil
}

// reversedTrade carries what the notifier needs after the transaction
// commits.
type reversedTrade struct {
	tradeID string
	msgID   int64
}

// SetupConfirmed refines a signal with concrete price levels. Any other
// open trade on the symbol is force-closed first (the new setup
// supersedes them), inside the same transaction as the setup's own
// upsert so two concurrent setups cannot both survive as open.
func (s *TradeService) SetupConfirmed(tradeID, symbol, tradeType string, levels store.Levels) error {
	var reversed []reversedTrade
	var threadMsgID int64

	err := s.store.Transaction(func(tx *store.Store) error {
		siblings, err := tx.FindOpenBySymbolExcept(symbol, tradeID)
		if err != nil {
			return err
		}
		for _, t := range siblings {
			if err := tx.UpdateStatusAndPoints(t.TradeID, models.StatusClosedReversal, t.PointsGained); err != nil {
				return err
			}
			if t.TelegramMsgID != 0 {
				reversed = append(reversed, reversedTrade{tradeID: t.TradeID, msgID: t.TelegramMsgID})
			}
		}

		// Thread the setup message under the original signal message,
		// if this trade_id has one.
		existing, err := tx.FindByTradeID(tradeID)
		if err != nil {
			return err
		}
		if existing != nil {
			threadMsgID = existing.TelegramMsgID
		}

		return tx.UpsertSetup(tradeID, symbol, tradeType, levels)
	})
	if err != nil {
		return fmt.Errorf("setup_confirmed %s: %w", tradeID, err)
	}

	for _, t := range reversed {
		s.logger.Info("Trade reversed by new setup",
			zap.String("trade_id", t.tradeID), zap.String("symbol", symbol))
		s.notifier.TradeReversed(t.msgID)
	}
	s.notifier.SetupConfirmed(threadMsgID, levels)

	s.broadcast.Broadcast()
	return nil
}

// PriceUpdate recomputes floating P/L for every ACTIVE trade on the
// symbol. BUY positions close at the bid, SELL positions at the ask.
// Ticks are status-neutral and generate no notification.
func (s *TradeService) PriceUpdate(symbol string, bid, ask float64) error {
	trades, err := s.store.FindActiveBySymbol(symbol)
	if err != nil {
		return fmt.Errorf("price_update %s: %w", symbol, err)
	}

	for _, t := range trades {
		price := bid
		if t.Type == models.TypeSell {
			price = ask
		}
		points := lifecycle.Points(t.Type, t.EntryPrice, price)
		if err := s.store.UpdatePoints(t.TradeID, points); err != nil {
			return fmt.Errorf("price_update %s: %w", symbol, err)
		}
	}
	return nil
}

// LogEventResult reports what a log_event call did.
type LogEventResult struct {
	Found   bool
	Applied bool
	Reason  lifecycle.SkipReason // set when Found && !Applied
}

// LogEvent applies a reported lifecycle transition under the guard
// rules. An unknown trade_id and a guarded-off transition are both soft
// outcomes, not errors: the upstream source treats anything but a
// transport fault as delivered.
func (s *TradeService) LogEvent(tradeID, newStatus string, price float64) (LogEventResult, error) {
	var result LogEventResult
	var trade *models.Trade
	var points float64

	err := s.store.Transaction(func(tx *store.Store) error {
		var err error
		trade, err = tx.FindByTradeID(tradeID)
		if err != nil {
			return err
		}
		if trade == nil {
			return nil
		}
		result.Found = true

		decision := lifecycle.EvaluateTransition(trade.Status, newStatus)
		if !decision.Apply {
			result.Reason = decision.Reason
			return nil
		}

		points = lifecycle.Points(trade.Type, trade.EntryPrice, price)
		if err := tx.UpdateStatusAndPoints(tradeID, newStatus, points); err != nil {
			return err
		}
		result.Applied = true
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("log_event %s: %w", tradeID, err)
	}

	if !result.Found {
		s.logger.Info("Event for unknown trade", zap.String("trade_id", tradeID), zap.String("status", newStatus))
		return result, nil
	}
	if !result.Applied {
		s.logger.Info("Status change suppressed",
			zap.String("trade_id", tradeID),
			zap.String("current", trade.Status),
			zap.String("incoming", newStatus),
			zap.String("reason", string(result.Reason)))
		return result, nil
	}

	s.notifier.StatusUpdate(trade.TelegramMsgID, newStatus, price, points)
	s.broadcast.Broadcast()
	return result, nil
}

// DeleteTrades hard-deletes the given trade_ids. The password has
// already been checked by the handler.
func (s *TradeService) DeleteTrades(tradeIDs []string) error {
	if err := s.store.DeleteByTradeIDs(tradeIDs); err != nil {
		return err
	}
	s.logger.Info("Deleted trades", zap.Int("count", len(tradeIDs)))
	s.broadcast.Broadcast()
	return nil
}
