package engine

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/fundedsim/engine/src/models"
)

// AccountSnapshot is the point-in-time account state the validator runs
// against. The validator never mutates anything; callers build a snapshot
// and discard it.
type AccountSnapshot struct {
	Balance           float64
	HighWaterMark     float64
	DailyPnL          float64
	DailyLossLimitHit bool
	OpenContracts     float64
}

// Validator runs the fixed battery of five pre-trade risk checks. All five
// always run so the caller gets a complete diagnostic; the order is
// accepted only if every check passes.
type Validator struct {
	adverseMoveTicks float64
}

func NewValidator(adverseMoveTicks float64) *Validator {
	return &Validator{
		adverseMoveTicks: adverseMoveTicks,
	}
}

// Validate checks an order request against a snapshot of account state and
// tier rules. instrument may be nil when the symbol has no known contract
// specification; the checks that need it degrade to a logged skip rather
// than failing closed.
func (v *Validator) Validate(snapshot AccountSnapshot, tier models.Tier, instrument *models.Instrument, quantity float64) []models.RuleCheckResult {
	return []models.RuleCheckResult{
		v.checkBalance(snapshot, instrument, quantity),
		v.checkPositionLimit(snapshot, tier, quantity),
		v.checkDrawdown(snapshot, tier, instrument, quantity),
		v.checkDailyLoss(snapshot, tier),
		v.checkMargin(snapshot, instrument, quantity),
	}
}

func skippedCheck(name string) models.RuleCheckResult {
	log.Warnf("validator: %s check skipped: unknown instrument", name)

	return models.RuleCheckResult{
		Name:    name,
		Passed:  true,
		Message: "skipped: unknown instrument",
	}
}

func (v *Validator) checkBalance(snapshot AccountSnapshot, instrument *models.Instrument, quantity float64) models.RuleCheckResult {
	if instrument == nil {
		return skippedCheck(models.CheckBalance)
	}

	roundTrip := instrument.RoundTripCost(quantity)
	if snapshot.Balance < roundTrip {
		return models.RuleCheckResult{
			Name:    models.CheckBalance,
			Message: fmt.Sprintf("balance %.2f is below estimated round-trip cost %.2f", snapshot.Balance, roundTrip),
		}
	}

	return models.RuleCheckResult{Name: models.CheckBalance, Passed: true}
}

func (v *Validator) checkPositionLimit(snapshot AccountSnapshot, tier models.Tier, quantity float64) models.RuleCheckResult {
	if tier.MaxQuantityPerTrade > 0 && quantity > tier.MaxQuantityPerTrade {
		return models.RuleCheckResult{
			Name:    models.CheckPositionLimit,
			Message: fmt.Sprintf("quantity %.0f exceeds per-trade limit %.0f", quantity, tier.MaxQuantityPerTrade),
		}
	}

	if tier.MaxOpenQuantity > 0 && snapshot.OpenContracts+quantity > tier.MaxOpenQuantity {
		return models.RuleCheckResult{
			Name:    models.CheckPositionLimit,
			Message: fmt.Sprintf("open contracts %.0f plus quantity %.0f exceeds open-contract limit %.0f", snapshot.OpenContracts, quantity, tier.MaxOpenQuantity),
		}
	}

	return models.RuleCheckResult{Name: models.CheckPositionLimit, Passed: true}
}

func (v *Validator) checkDrawdown(snapshot AccountSnapshot, tier models.Tier, instrument *models.Instrument, quantity float64) models.RuleCheckResult {
	if instrument == nil {
		return skippedCheck(models.CheckDrawdown)
	}

	worstCase := quantity * v.adverseMoveTicks * instrument.TickValue
	currentDrawdown := snapshot.HighWaterMark - snapshot.Balance

	if currentDrawdown+worstCase > tier.MaxDrawdown {
		return models.RuleCheckResult{
			Name:    models.CheckDrawdown,
			Message: fmt.Sprintf("drawdown %.2f plus worst-case move %.2f exceeds max drawdown %.2f", currentDrawdown, worstCase, tier.MaxDrawdown),
		}
	}

	return models.RuleCheckResult{Name: models.CheckDrawdown, Passed: true}
}

func (v *Validator) checkDailyLoss(snapshot AccountSnapshot, tier models.Tier) models.RuleCheckResult {
	if snapshot.DailyLossLimitHit {
		return models.RuleCheckResult{
			Name:    models.CheckDailyLoss,
			Message: "daily loss limit already hit",
		}
	}

	if snapshot.DailyPnL <= -tier.DailyLossLimit {
		return models.RuleCheckResult{
			Name:    models.CheckDailyLoss,
			Message: fmt.Sprintf("daily pnl %.2f is at or past the daily loss limit %.2f", snapshot.DailyPnL, tier.DailyLossLimit),
		}
	}

	return models.RuleCheckResult{Name: models.CheckDailyLoss, Passed: true}
}

func (v *Validator) checkMargin(snapshot AccountSnapshot, instrument *models.Instrument, quantity float64) models.RuleCheckResult {
	if instrument == nil {
		return skippedCheck(models.CheckMargin)
	}

	required := quantity * instrument.MarginPerContract
	available := snapshot.Balance - snapshot.OpenContracts*instrument.MarginPerContract

	if required > available {
		return models.RuleCheckResult{
			Name:    models.CheckMargin,
			Message: fmt.Sprintf("margin requirement %.2f exceeds available margin %.2f", required, available),
		}
	}

	return models.RuleCheckResult{Name: models.CheckMargin, Passed: true}
}
