package engine

import (
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fundedsim/engine/src/models"
)

// Ledger applies executions to positions, splitting realized from
// unrealized P&L. Average entry price changes only when the position's
// magnitude grows in the same direction; realized P&L changes only when
// it shrinks.
//
// Commission policy on a reversal through zero: the full commission and
// fees of the reversing execution are charged to the closing leg, so the
// new position opens clean at the fill price.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// ApplyExecution folds one execution into the position and returns the net
// realized P&L of the execution: price P&L on any closed quantity minus
// the execution's commission and fees. The return value is exactly the
// balance delta the lifecycle applies to the account.
func (l *Ledger) ApplyExecution(position *models.Position, execution *models.Execution, instrument models.Instrument) float64 {
	delta := execution.Quantity
	pointValue := instrument.PointValue()

	if delta > 0 {
		position.TotalBought += delta
	} else {
		position.TotalSold += -delta
	}

	pricePnL := 0.0

	if !position.IsReduction(delta) {
		// Same direction (or flat): the add re-weights the average entry.
		absQty := math.Abs(position.Quantity)
		absDelta := math.Abs(delta)
		position.AvgEntryPrice = (absQty*position.AvgEntryPrice + absDelta*execution.Price) / (absQty + absDelta)
		position.Quantity += delta
	} else if math.Abs(delta) <= math.Abs(position.Quantity) {
		// Reduction: realize on the closed portion, entry price unchanged.
		closedQty := math.Abs(delta)
		pricePnL = closedQty * (execution.Price - position.AvgEntryPrice) * pointValue * direction(position.Quantity)
		position.Quantity += delta
	} else {
		// Reversal through zero: close the old quantity in full, then open
		// the excess in the new direction at the fill price.
		closedQty := math.Abs(position.Quantity)
		pricePnL = closedQty * (execution.Price - position.AvgEntryPrice) * pointValue * direction(position.Quantity)

		position.Quantity += delta
		position.AvgEntryPrice = execution.Price

		log.WithFields(log.Fields{
			"symbol":       position.Symbol,
			"closed":       closedQty,
			"reversed_to":  position.Quantity,
			"realized_pnl": pricePnL,
		}).Debug("ledger: position reversed through zero")
	}

	netRealized := pricePnL - execution.Commission - execution.Fees
	position.RealizedPnL += netRealized

	if position.Quantity == 0 {
		position.Open = false
		position.UnrealizedPnL = 0
		closedAt := execution.CreatedAt
		position.ClosedAt = &closedAt
	}

	return netRealized
}

// PositionFor returns an open position ready to receive the execution:
// the existing open one, or a fresh record when trading resumes in a
// symbol whose previous position was closed.
func (l *Ledger) PositionFor(existing *models.Position, execution *models.Execution, openedAt time.Time) *models.Position {
	if existing != nil && existing.Open {
		return existing
	}

	return models.NewPosition(execution.AccountID, execution.Symbol, openedAt)
}

func direction(quantity float64) float64 {
	if quantity < 0 {
		return -1
	}

	return 1
}
