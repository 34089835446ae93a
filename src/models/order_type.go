package models

import "fmt"

type OrderType string

const (
	Market       OrderType = "market"
	Limit        OrderType = "limit"
	Stop         OrderType = "stop"
	StopLimit    OrderType = "stop_limit"
	TrailingStop OrderType = "trailing_stop"
)

func (t OrderType) Validate() error {
	switch t {
	case Market, Limit, Stop, StopLimit, TrailingStop:
		return nil
	default:
		return fmt.Errorf("invalid order type: %s", t)
	}
}
