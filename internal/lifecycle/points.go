package lifecycle

import "trade-dashboard-go/internal/models"

// Points returns the signed profit for a trade in raw price units.
// BUY profit is reference minus entry, SELL profit is entry minus
// reference. No pip scaling is applied; rendering (e.g. 5-decimal FX
// display) is a presentation concern of the callers.
//
// Either price being zero means we do not have enough information yet,
// so the result is zero rather than an error.
func Points(tradeType string, entry, reference float64) float64 {
	if entry == 0 || reference == 0 {
		return 0
	}
	if tradeType == models.TypeBuy {
		return reference - entry
	}
	return entry - reference
}
