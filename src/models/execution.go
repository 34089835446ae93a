package models

import (
	"time"

	"github.com/google/uuid"
)

// Execution is an immutable fill event against an order. Executions are
// append-only and are the source of truth when reconciling account and
// position state after a crash.
type Execution struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"order_id"`
	AccountID  uuid.UUID `json:"account_id"`
	Symbol     string    `json:"symbol"`
	Quantity   float64   `json:"quantity"` // signed: positive buys, negative sells
	Price      float64   `json:"price"`
	Slippage   float64   `json:"slippage"` // recorded separately from commission for audit
	Commission float64   `json:"commission"`
	Fees       float64   `json:"fees"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewExecution(order *Order, quantity float64, price float64, slippage float64, commission float64, fees float64, createdAt time.Time) *Execution {
	return &Execution{
		ID:         uuid.New(),
		OrderID:    order.ID,
		AccountID:  order.AccountID,
		Symbol:     order.Symbol,
		Quantity:   quantity,
		Price:      price,
		Slippage:   slippage,
		Commission: commission,
		Fees:       fees,
		CreatedAt:  createdAt,
	}
}
