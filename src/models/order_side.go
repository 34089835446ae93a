package models

import "fmt"

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

func (s OrderSide) Validate() error {
	switch s {
	case OrderSideBuy, OrderSideSell:
		return nil
	default:
		return fmt.Errorf("invalid order side: %s", s)
	}
}

// Sign is +1 for buys and -1 for sells, used to produce signed quantities.
func (s OrderSide) Sign() float64 {
	if s == OrderSideSell {
		return -1
	}

	return 1
}
