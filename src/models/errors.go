package models

import "fmt"

var (
	ErrAccountNotFound      = fmt.Errorf("account not found")
	ErrOrderNotFound        = fmt.Errorf("order not found")
	ErrPositionNotFound     = fmt.Errorf("position not found")
	ErrUnknownInstrument    = fmt.Errorf("unknown instrument")
	ErrUnknownTier          = fmt.Errorf("unknown tier")
	ErrOrderNotFillable     = fmt.Errorf("order is not fillable")
	ErrOrderNotCancellable  = fmt.Errorf("order is not cancellable")
	ErrTradingNotAllowed    = fmt.Errorf("trading is not allowed for account status")
	ErrNoPriceAvailable     = fmt.Errorf("no price available")
	ErrInvalidOrderQuantity = fmt.Errorf("order quantity must be greater than 0")
)
