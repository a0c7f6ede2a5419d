package lifecycle

import "trade-dashboard-go/internal/models"

// SkipReason explains why a reported status change was not applied.
// Skipped transitions are still reported as success to the caller: the
// upstream signal source retries blindly, and a rejected retry must not
// look like a server fault.
type SkipReason string

const (
	// SkipDuplicate: the trade is already in the reported status.
	// Tolerates repeated webhook deliveries.
	SkipDuplicate SkipReason = "duplicate status"

	// SkipProfitLock: a stop-loss report arrived after a take-profit
	// was already recorded. A stale SL must never erase partial profit.
	SkipProfitLock SkipReason = "stop-loss after take-profit"

	// SkipTPRegression: a lower-numbered take-profit arrived after a
	// higher one. Targets are hit in order; late deliveries must not
	// regress displayed progress.
	SkipTPRegression SkipReason = "take-profit regression"
)

// Decision is the outcome of evaluating a reported status change.
type Decision struct {
	Apply  bool
	Reason SkipReason // set when Apply is false
}

// EvaluateTransition applies the lifecycle guard rules to a reported
// status change and decides whether it may mutate the trade.
//
// The status field is an open string, so guards match on substrings and
// take-profit rank rather than a closed enum. Anything the guards do
// not explicitly reject is applied as-is.
func EvaluateTransition(current, incoming string) Decision {
	if current == incoming {
		return Decision{Apply: false, Reason: SkipDuplicate}
	}

	if models.HasTakeProfit(current) && models.IsStopLoss(incoming) {
		return Decision{Apply: false, Reason: SkipProfitLock}
	}

	curRank := models.TakeProfitRank(current)
	incRank := models.TakeProfitRank(incoming)
	if curRank > 0 && incRank > 0 && incRank < curRank {
		return Decision{Apply: false, Reason: SkipTPRegression}
	}

	return Decision{Apply: true}
}
