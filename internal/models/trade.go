package models

import (
	"strings"
	"time"
)

// Trade lifecycle statuses. The status column is stored as an open string
// so the external signal source can report labels we have not seen yet;
// these constants cover the transitions the server itself reasons about.
const (
	StatusSignal         = "SIGNAL"
	StatusSetup          = "SETUP"
	StatusActive         = "ACTIVE"
	StatusTP1Hit         = "TP1_HIT"
	StatusTP2Hit         = "TP2_HIT"
	StatusTP3Hit         = "TP3_HIT"
	StatusSLHit          = "SL_HIT"
	StatusClosedReversal = "CLOSED (Reversal)"
)

// Trade directions.
const (
	TypeBuy  = "BUY"
	TypeSell = "SELL"
)

// Trade represents a signal-to-close trade record in the database.
// TradeID is the externally supplied identity; the numeric ID is only a
// storage key. JSON tags match the wire names the dashboard expects.
type Trade struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	TradeID       string    `gorm:"uniqueIndex;size:50;not null" json:"trade_id"`
	Symbol        string    `gorm:"size:20;not null" json:"symbol"`
	Type          string    `gorm:"size:10;not null" json:"type"` // "BUY" or "SELL"
	EntryPrice    float64   `gorm:"default:0" json:"entry_price"`
	SLPrice       float64   `gorm:"default:0" json:"sl_price"`
	TP1Price      float64   `gorm:"default:0" json:"tp1_price"`
	TP2Price      float64   `gorm:"default:0" json:"tp2_price"`
	TP3Price      float64   `gorm:"default:0" json:"tp3_price"`
	Status        string    `gorm:"size:20;default:SIGNAL" json:"status"`
	PointsGained  float64   `gorm:"default:0" json:"points_gained"`
	TelegramMsgID int64     `json:"telegram_msg_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OpenStatuses are the states in which a trade still occupies its symbol.
// A new setup on the same symbol reverses trades in any of these states.
var OpenStatuses = []string{StatusSignal, StatusSetup, StatusActive}

// IsOpen reports whether the trade is still in an open state.
func (t *Trade) IsOpen() bool {
	for _, s := range OpenStatuses {
		if t.Status == s {
			return true
		}
	}
	return false
}

// HasTakeProfit reports whether the status records a take-profit hit.
// Status labels are open strings, so this is a substring check rather
// than an enum comparison.
func HasTakeProfit(status string) bool {
	return strings.Contains(status, "TP")
}

// IsStopLoss reports whether the status records a stop-loss hit.
func IsStopLoss(status string) bool {
	return strings.Contains(status, "SL")
}

// TakeProfitRank returns the target number of a TPn status (1..3),
// or 0 when the status is not a numbered take-profit.
func TakeProfitRank(status string) int {
	switch {
	case strings.Contains(status, "TP3"):
		return 3
	case strings.Contains(status, "TP2"):
		return 2
	case strings.Contains(status, "TP1"):
		return 1
	default:
		return 0
	}
}
