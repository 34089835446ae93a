package engine

import (
	log "github.com/sirupsen/logrus"

	"github.com/fundedsim/engine/src/database"
	"github.com/fundedsim/engine/src/marketdata"
)

// SweepResult summarizes one monitor pass.
type SweepResult struct {
	Checked   int `json:"checked"`
	Triggered int `json:"triggered"`
	Filled    int `json:"filled"`
}

// Monitor is the resting-order sweep. It runs on an external cadence —
// the host's ticker or the manual admin trigger — and never schedules
// itself. Repeated sweeps at an unchanged price are idempotent because
// the lifecycle's fill path no-ops on orders that already left the
// working state.
type Monitor struct {
	store     database.Store
	feed      *marketdata.PriceFeed
	lifecycle *Lifecycle
}

func NewMonitor(store database.Store, feed *marketdata.PriceFeed, lifecycle *Lifecycle) *Monitor {
	return &Monitor{
		store:     store,
		feed:      feed,
		lifecycle: lifecycle,
	}
}

// RunSweep re-tests every resting order against the current price. A
// failure on one order is logged and does not abort the sweep for the
// others; only a failure to list the resting set fails the sweep itself.
func (m *Monitor) RunSweep() (SweepResult, error) {
	var result SweepResult

	orders, err := m.store.ListRestingOrders()
	if err != nil {
		return result, err
	}

	for _, order := range orders {
		result.Checked++

		// One price read per order check: the trigger test and any fill
		// that follows use the identical value.
		price, err := m.feed.CurrentPrice(order.Symbol)
		if err != nil {
			log.Warnf("monitor: skipping order %s: %v", order.ID, err)
			continue
		}

		action, err := m.lifecycle.ProcessRestingOrder(order.ID, price)
		if err != nil {
			log.WithFields(log.Fields{
				"order":  order.ID,
				"symbol": order.Symbol,
			}).Errorf("monitor: %v", err)
			continue
		}

		switch action {
		case SweepActionTriggered:
			result.Triggered++
		case SweepActionFilled:
			result.Filled++
		}
	}

	return result, nil
}
