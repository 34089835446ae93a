package engine

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/fundedsim/engine/src/models"
)

// Fill is the priced outcome of a simulated execution before it is
// recorded against an order.
type Fill struct {
	Price      float64
	Quantity   float64 // signed
	Slippage   float64
	Commission float64
	Fees       float64
}

// Simulator prices fills for every order type. It holds no order state;
// trigger evaluation is a pure function of order, instrument and the
// current price.
type Simulator struct {
	mu                 sync.Mutex
	rng                *rand.Rand
	maxSlippageTicks   int
	slippageSizeFactor float64
}

func NewSimulator(maxSlippageTicks int, slippageSizeFactor float64, seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Simulator{
		rng:                rand.New(rand.NewSource(seed)),
		maxSlippageTicks:   maxSlippageTicks,
		slippageSizeFactor: slippageSizeFactor,
	}
}

// slippage draws 0..maxSlippageTicks baseline ticks scaled up by order
// size. The result is a positive dollar amount; the caller applies it
// adversely to the trader's side.
func (s *Simulator) slippage(instrument models.Instrument, quantity float64) float64 {
	if s.maxSlippageTicks <= 0 {
		return 0
	}

	s.mu.Lock()
	baseTicks := float64(s.rng.Intn(s.maxSlippageTicks + 1))
	s.mu.Unlock()

	sizeMultiplier := 1 + quantity*s.slippageSizeFactor

	return instrument.RoundToTick(baseTicks * sizeMultiplier * instrument.TickSize)
}

func (s *Simulator) costs(instrument models.Instrument, quantity float64) (commission, fees float64) {
	return quantity * instrument.CommissionPerContract, quantity * instrument.FeePerContract
}

// TryFill evaluates whether the order fills at the current price and, if
// so, prices the fill. resting distinguishes the monitor path from the
// submission path: a resting limit order fills at its limit price because
// the sub-interval crossing price is not observable, while a marketable
// limit at submission fills at the current price.
func (s *Simulator) TryFill(order *models.Order, instrument models.Instrument, price float64, resting bool) (*Fill, bool, error) {
	if price <= 0 {
		return nil, false, models.ErrNoPriceAvailable
	}

	quantity := order.RemainingQuantity()
	if quantity <= 0 {
		return nil, false, fmt.Errorf("%w: nothing left to fill", models.ErrOrderNotFillable)
	}

	switch order.Type {
	case models.Market:
		return s.marketFill(order, instrument, price, quantity), true, nil

	case models.Limit:
		return s.limitFill(order, instrument, price, quantity, resting)

	case models.Stop:
		if !stopTriggered(order.Side, order.StopPrice, price) {
			return nil, false, nil
		}

		return s.marketFill(order, instrument, price, quantity), true, nil

	case models.StopLimit:
		// The stop leg converts the order into a working limit; it never
		// fills directly off the trigger.
		if !order.StopTriggered {
			return nil, false, nil
		}

		return s.limitFill(order, instrument, price, quantity, resting)

	case models.TrailingStop:
		if !stopTriggered(order.Side, order.TrailingStop, price) {
			return nil, false, nil
		}

		return s.marketFill(order, instrument, price, quantity), true, nil

	default:
		return nil, false, fmt.Errorf("unsupported order type: %s", order.Type)
	}
}

func (s *Simulator) marketFill(order *models.Order, instrument models.Instrument, price float64, quantity float64) *Fill {
	slippage := s.slippage(instrument, quantity)
	fillPrice := price + order.Side.Sign()*slippage
	if fillPrice < instrument.TickSize {
		fillPrice = instrument.TickSize
	}

	commission, fees := s.costs(instrument, quantity)

	return &Fill{
		Price:      fillPrice,
		Quantity:   order.Side.Sign() * quantity,
		Slippage:   slippage,
		Commission: commission,
		Fees:       fees,
	}
}

func (s *Simulator) limitFill(order *models.Order, instrument models.Instrument, price float64, quantity float64, resting bool) (*Fill, bool, error) {
	if order.LimitPrice == nil {
		return nil, false, fmt.Errorf("limit order %s has no limit price", order.ID)
	}

	limit := *order.LimitPrice

	crossed := false
	if order.Side == models.OrderSideBuy {
		crossed = price <= limit
	} else {
		crossed = price >= limit
	}

	if !crossed {
		return nil, false, nil
	}

	fillPrice := limit
	if !resting {
		// Marketable at submission: the current price is directly
		// observable, take it when it improves on the limit.
		if order.Side == models.OrderSideBuy && price < limit {
			fillPrice = price
		} else if order.Side == models.OrderSideSell && price > limit {
			fillPrice = price
		}
	}

	commission, fees := s.costs(instrument, quantity)

	return &Fill{
		Price:      fillPrice,
		Quantity:   order.Side.Sign() * quantity,
		Slippage:   0,
		Commission: commission,
		Fees:       fees,
	}, true, nil
}

// stopTriggered checks the adverse-confirming stop condition: a buy stop
// fires at or above the level, a sell stop at or below.
func stopTriggered(side models.OrderSide, level *float64, price float64) bool {
	if level == nil {
		return false
	}

	if side == models.OrderSideBuy {
		return price >= *level
	}

	return price <= *level
}

// UpdateTrailingStop recalculates the trailing trigger as
// currentPrice ∓ trailAmount, only ever tightening in the trader's favor.
// Returns true when the level moved.
func UpdateTrailingStop(order *models.Order, instrument models.Instrument, price float64) bool {
	if order.Type != models.TrailingStop || order.TrailAmount == nil {
		return false
	}

	trail := *order.TrailAmount

	var candidate float64
	if order.Side == models.OrderSideSell {
		candidate = instrument.RoundToTick(price - trail)
		if order.TrailingStop == nil || candidate > *order.TrailingStop {
			order.TrailingStop = &candidate
			return true
		}
	} else {
		candidate = instrument.RoundToTick(price + trail)
		if order.TrailingStop == nil || candidate < *order.TrailingStop {
			order.TrailingStop = &candidate
			return true
		}
	}

	return false
}

// UpdateStopLimitTrigger fires the stop leg of a stop-limit order when the
// price crosses it, converting the order into a working limit. Returns
// true on the transition.
func UpdateStopLimitTrigger(order *models.Order, price float64) bool {
	if order.Type != models.StopLimit || order.StopTriggered {
		return false
	}

	if stopTriggered(order.Side, order.StopPrice, price) {
		order.StopTriggered = true
		return true
	}

	return false
}
