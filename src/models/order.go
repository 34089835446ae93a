package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Order is a single trading instruction. An order belongs to exactly one
// account and becomes immutable once its status is terminal.
type Order struct {
	ID             uuid.UUID    `json:"id"`
	AccountID      uuid.UUID    `json:"account_id"`
	Symbol         string       `json:"symbol"`
	Side           OrderSide    `json:"side"`
	Type           OrderType    `json:"type"`
	Quantity       float64      `json:"quantity"` // requested, absolute
	FilledQuantity float64      `json:"filled_quantity"`
	LimitPrice     *float64     `json:"limit_price,omitempty"`
	StopPrice      *float64     `json:"stop_price,omitempty"`
	TrailAmount    *float64     `json:"trail_amount,omitempty"`
	TrailingStop   *float64     `json:"trailing_stop,omitempty"` // current ratcheted trigger level
	StopTriggered  bool         `json:"stop_triggered"`          // stop-limit only: stop leg has fired
	AvgFillPrice   float64      `json:"avg_fill_price"`
	Status         OrderStatus  `json:"status"`
	RejectReason   *string      `json:"reject_reason,omitempty"`
	Executions     []*Execution `json:"executions"`
	CreatedAt      time.Time    `json:"created_at"`
}

func NewOrder(accountID uuid.UUID, symbol string, side OrderSide, orderType OrderType, quantity float64, limitPrice, stopPrice, trailAmount *float64, createdAt time.Time) *Order {
	return &Order{
		ID:          uuid.New(),
		AccountID:   accountID,
		Symbol:      symbol,
		Side:        side,
		Type:        orderType,
		Quantity:    quantity,
		LimitPrice:  limitPrice,
		StopPrice:   stopPrice,
		TrailAmount: trailAmount,
		Status:      OrderStatusPending,
		Executions:  []*Execution{},
		CreatedAt:   createdAt,
	}
}

func (o *Order) RemainingQuantity() float64 {
	return o.Quantity - o.FilledQuantity
}

// SignedQuantity is the requested quantity with the side's sign applied.
func (o *Order) SignedQuantity() float64 {
	return o.Side.Sign() * o.Quantity
}

func (o *Order) SignedRemaining() float64 {
	return o.Side.Sign() * o.RemainingQuantity()
}

func (o *Order) Reject(reason string) {
	o.Status = OrderStatusRejected
	o.RejectReason = &reason
}

func (o *Order) Cancel() error {
	if !o.Status.IsCancellable() {
		return fmt.Errorf("%w: status is %s", ErrOrderNotCancellable, o.Status)
	}

	o.Status = OrderStatusCancelled

	return nil
}

// ApplyExecution records a fill against the order, updating filled and
// remaining quantities and the quantity-weighted average fill price.
func (o *Order) ApplyExecution(exec *Execution) error {
	if !o.Status.IsFillable() {
		return fmt.Errorf("%w: status is %s", ErrOrderNotFillable, o.Status)
	}

	if exec.Price <= 0 {
		return fmt.Errorf("execution price must be greater than 0")
	}

	qty := math.Abs(exec.Quantity)
	if qty == 0 {
		return fmt.Errorf("execution quantity must be non-zero")
	}

	if qty > o.RemainingQuantity()+1e-9 {
		return fmt.Errorf("execution quantity %.2f exceeds remaining quantity %.2f", qty, o.RemainingQuantity())
	}

	o.AvgFillPrice = (o.AvgFillPrice*o.FilledQuantity + exec.Price*qty) / (o.FilledQuantity + qty)
	o.FilledQuantity += qty
	o.Executions = append(o.Executions, exec)

	if o.RemainingQuantity() <= 1e-9 {
		o.FilledQuantity = o.Quantity
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartiallyFilled
	}

	return nil
}
