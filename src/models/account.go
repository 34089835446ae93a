package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is the unit of risk evaluation. Balance is mutated only by the
// order lifecycle's post-execution step; status is written only by the
// account evaluator.
type Account struct {
	ID                  uuid.UUID     `json:"id"`
	TierName            string        `json:"tier"`
	Status              AccountStatus `json:"status"`
	Balance             float64       `json:"balance"`
	InitialBalance      float64       `json:"initial_balance"`
	HighWaterMark       float64       `json:"high_water_mark"`
	DrawdownThreshold   float64       `json:"drawdown_threshold"`
	DailyPnL            float64       `json:"daily_pnl"`
	DailyLossLimitHit   bool          `json:"daily_loss_limit_hit"`
	ProfitTargetReached bool          `json:"profit_target_reached"`
	TradingDays         int           `json:"trading_days"`
	TradedToday         bool          `json:"traded_today"`
	OpenOrderCount      int           `json:"open_order_count"`
	OpenPositionCount   int           `json:"open_position_count"`
	FailureReason       *string       `json:"failure_reason,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
}

// Drawdown is the peak-to-current decline from the high-water mark.
func (a *Account) Drawdown() float64 {
	return a.HighWaterMark - a.Balance
}

func NewAccount(tier Tier) *Account {
	return &Account{
		ID:                uuid.New(),
		TierName:          tier.Name,
		Status:            AccountStatusActive,
		Balance:           tier.StartingBalance,
		InitialBalance:    tier.StartingBalance,
		HighWaterMark:     tier.StartingBalance,
		DrawdownThreshold: tier.StartingBalance - tier.MaxDrawdown,
		CreatedAt:         time.Now().UTC(),
	}
}
