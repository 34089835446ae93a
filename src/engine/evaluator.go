package engine

import (
	log "github.com/sirupsen/logrus"

	"github.com/fundedsim/engine/src/models"
)

const maxDrawdownReason = "max drawdown exceeded"

// Evaluator owns account status transitions. It is invoked after every
// balance-affecting event; nothing else writes account status.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate applies the rules in priority order:
//  1. balance at or below the drawdown threshold fails the account,
//  2. daily P&L at or past the daily loss limit sets the daily-loss flag
//     (blocking new orders, without changing status),
//  3. profit target reached with the minimum trading days met passes it.
//
// Returns true when the account status changed.
func (e *Evaluator) Evaluate(account *models.Account, tier models.Tier) bool {
	if account.Status.IsTerminal() {
		return false
	}

	if account.Balance <= account.DrawdownThreshold {
		reason := maxDrawdownReason
		account.Status = models.AccountStatusFailed
		account.FailureReason = &reason

		log.WithFields(log.Fields{
			"account":   account.ID,
			"balance":   account.Balance,
			"threshold": account.DrawdownThreshold,
		}).Info("evaluator: account failed")

		return true
	}

	if account.DailyPnL <= -tier.DailyLossLimit && !account.DailyLossLimitHit {
		account.DailyLossLimitHit = true

		log.WithFields(log.Fields{
			"account":   account.ID,
			"daily_pnl": account.DailyPnL,
			"limit":     tier.DailyLossLimit,
		}).Info("evaluator: daily loss limit hit")
	}

	if account.Balance-account.InitialBalance >= tier.ProfitTarget {
		account.ProfitTargetReached = true

		if account.TradingDays >= tier.MinTradingDays && account.Status == models.AccountStatusActive {
			account.Status = models.AccountStatusPassed

			log.WithFields(log.Fields{
				"account": account.ID,
				"balance": account.Balance,
			}).Info("evaluator: profit target reached, account passed")

			return true
		}
	}

	return false
}

// RollDay performs the end-of-day housekeeping: count a trading day when
// any execution occurred, reset the daily P&L and the daily-loss flag, and
// recompute the trailing drawdown threshold. Once the profit target has
// been reached the threshold is frozen permanently for the evaluation
// phase. The host invokes this on its own schedule; the evaluator never
// self-schedules.
func (e *Evaluator) RollDay(account *models.Account, tier models.Tier) {
	if account.TradedToday {
		account.TradingDays++
		account.TradedToday = false
	}

	account.DailyPnL = 0
	account.DailyLossLimitHit = false

	if !account.ProfitTargetReached {
		if account.Balance > account.HighWaterMark {
			account.HighWaterMark = account.Balance
		}

		account.DrawdownThreshold = account.HighWaterMark - tier.MaxDrawdown
	}

	// A pass blocked earlier only by the minimum-trading-days requirement
	// completes here once the day count catches up.
	e.Evaluate(account, tier)
}
