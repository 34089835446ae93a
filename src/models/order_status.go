package models

import "fmt"

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusSubmitted       OrderStatus = "submitted"
	OrderStatusWorking         OrderStatus = "working"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusExpired         OrderStatus = "expired"
)

func (s OrderStatus) Validate() error {
	switch s {
	case OrderStatusPending, OrderStatusSubmitted, OrderStatusWorking, OrderStatusPartiallyFilled, OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusExpired:
		return nil
	default:
		return fmt.Errorf("invalid order status: %s", s)
	}
}

// IsTerminal reports whether the order is immutable: no further fills,
// cancellations or modifications are permitted.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// IsFillable reports whether an execution may still be applied.
func (s OrderStatus) IsFillable() bool {
	return s == OrderStatusSubmitted || s == OrderStatusWorking || s == OrderStatusPartiallyFilled
}

// IsResting reports whether the order should be picked up by the
// resting-order monitor sweep.
func (s OrderStatus) IsResting() bool {
	return s == OrderStatusSubmitted || s == OrderStatusWorking || s == OrderStatusPartiallyFilled
}

func (s OrderStatus) IsCancellable() bool {
	switch s {
	case OrderStatusPending, OrderStatusSubmitted, OrderStatusWorking, OrderStatusPartiallyFilled:
		return true
	default:
		return false
	}
}
