package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trade-dashboard-go/internal/models"
)

// Store is the trade record store. All mutating writes are keyed on the
// external trade_id and use insert-or-update-on-conflict semantics,
// never blind inserts, so repeated deliveries of the same event cannot
// create duplicate rows.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store over an already-migrated gorm connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction runs fn against a Store bound to a single database
// transaction. Multi-statement sequences (reversal scan+update,
// guard read+write) go through here so concurrent calls on the same
// symbol cannot interleave between their statements.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// FindByTradeID returns the trade with the given external id, or
// (nil, nil) when no such trade exists.
func (s *Store) FindByTradeID(tradeID string) (*models.Trade, error) {
	var trade models.Trade
	err := s.db.Where("trade_id = ?", tradeID).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find trade %s: %w", tradeID, err)
	}
	return &trade, nil
}

// FindOpenBySymbolExcept returns every trade on the symbol that is still
// in an open state (SIGNAL, SETUP, ACTIVE), excluding the given trade_id.
// The exclusion keeps a re-confirmed setup from reversing itself.
func (s *Store) FindOpenBySymbolExcept(symbol, excludeTradeID string) ([]models.Trade, error) {
	var trades []models.Trade
	err := s.db.
		Where("symbol = ? AND status IN ? AND trade_id != ?", symbol, models.OpenStatuses, excludeTradeID).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find open trades for %s: %w", symbol, err)
	}
	return trades, nil
}

// FindActiveBySymbol returns all ACTIVE trades on the symbol.
func (s *Store) FindActiveBySymbol(symbol string) ([]models.Trade, error) {
	var trades []models.Trade
	err := s.db.Where("symbol = ? AND status = ?", symbol, models.StatusActive).Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find active trades for %s: %w", symbol, err)
	}
	return trades, nil
}

// UpsertSignal records the first signal for a trade_id. If the trade
// already exists the write is a no-op: creation is first-write-wins, so
// a retried signal delivery never overwrites the stored message id or
// creation time.
func (s *Store) UpsertSignal(tradeID, symbol, tradeType string, telegramMsgID int64) error {
	trade := models.Trade{
		TradeID:       tradeID,
		Symbol:        symbol,
		Type:          tradeType,
		Status:        models.StatusSignal,
		TelegramMsgID: telegramMsgID,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_id"}},
		DoNothing: true,
	}).Create(&trade).Error
	if err != nil {
		return fmt.Errorf("failed to upsert signal %s: %w", tradeID, err)
	}
	return nil
}

// Levels are the price levels supplied by a confirmed setup.
type Levels struct {
	Entry float64
	SL    float64
	TP1   float64
	TP2   float64
	TP3   float64
}

// UpsertSetup creates or refines a trade with confirmed price levels and
// forces its status to SETUP. On conflict only the level columns and the
// status are updated: telegram_msg_id and created_at belong to the first
// signal and are never touched by later upserts.
func (s *Store) UpsertSetup(tradeID, symbol, tradeType string, levels Levels) error {
	trade := models.Trade{
		TradeID:    tradeID,
		Symbol:     symbol,
		Type:       tradeType,
		EntryPrice: levels.Entry,
		SLPrice:    levels.SL,
		TP1Price:   levels.TP1,
		TP2Price:   levels.TP2,
		TP3Price:   levels.TP3,
		Status:     models.StatusSetup,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "trade_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"entry_price", "sl_price", "tp1_price", "tp2_price", "tp3_price", "status", "updated_at",
		}),
	}).Create(&trade).Error
	if err != nil {
		return fmt.Errorf("failed to upsert setup %s: %w", tradeID, err)
	}
	return nil
}

// UpdateStatusAndPoints persists a lifecycle transition and the points
// recomputed for it in a single statement.
func (s *Store) UpdateStatusAndPoints(tradeID, status string, points float64) error {
	err := s.db.Model(&models.Trade{}).
		Where("trade_id = ?", tradeID).
		Updates(map[string]interface{}{"status": status, "points_gained": points}).Error
	if err != nil {
		return fmt.Errorf("failed to update status for %s: %w", tradeID, err)
	}
	return nil
}

// UpdatePoints persists a floating P/L tick without touching the status.
func (s *Store) UpdatePoints(tradeID string, points float64) error {
	err := s.db.Model(&models.Trade{}).
		Where("trade_id = ?", tradeID).
		Update("points_gained", points).Error
	if err != nil {
		return fmt.Errorf("failed to update points for %s: %w", tradeID, err)
	}
	return nil
}

// DeleteByTradeIDs hard-deletes the trades with the given external ids.
func (s *Store) DeleteByTradeIDs(tradeIDs []string) error {
	if len(tradeIDs) == 0 {
		return nil
	}
	err := s.db.Where("trade_id IN ?", tradeIDs).Delete(&models.Trade{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete trades: %w", err)
	}
	return nil
}

// ListRecent returns trades created within the last maxAgeDays, newest
// first, capped at maxRows. maxRows <= 0 means no cap.
func (s *Store) ListRecent(maxAgeDays, maxRows int) ([]models.Trade, error) {
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	q := s.db.Where("created_at > ?", cutoff).Order("created_at desc, id desc")
	if maxRows > 0 {
		q = q.Limit(maxRows)
	}
	var trades []models.Trade
	if err := q.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// PurgeOlderThan deletes trades older than maxAgeDays and returns the
// number of rows removed.
func (s *Store) PurgeOlderThan(maxAgeDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	res := s.db.Where("created_at < ?", cutoff).Delete(&models.Trade{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge old trades: %w", res.Error)
	}
	return res.RowsAffected, nil
}
