package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Position is the single open-or-closed aggregate per (account, symbol).
// Quantity is signed: positive long, negative short. RealizedPnL is
// accumulated; UnrealizedPnL is recomputed on every mark, never accumulated.
type Position struct {
	ID            uuid.UUID  `json:"id"`
	AccountID     uuid.UUID  `json:"account_id"`
	Symbol        string     `json:"symbol"`
	Quantity      float64    `json:"quantity"`
	AvgEntryPrice float64    `json:"avg_entry_price"`
	RealizedPnL   float64    `json:"realized_pnl"`
	UnrealizedPnL float64    `json:"unrealized_pnl"`
	TotalBought   float64    `json:"total_bought"`
	TotalSold     float64    `json:"total_sold"`
	Open          bool       `json:"open"`
	OpenedAt      time.Time  `json:"opened_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

func NewPosition(accountID uuid.UUID, symbol string, openedAt time.Time) *Position {
	return &Position{
		ID:        uuid.New(),
		AccountID: accountID,
		Symbol:    symbol,
		Open:      true,
		OpenedAt:  openedAt,
	}
}

// MarkToMarket recomputes unrealized P&L from the current price.
// pointValue converts a one point move to dollars per contract.
func (p *Position) MarkToMarket(price float64, pointValue float64) float64 {
	p.UnrealizedPnL = p.Quantity * (price - p.AvgEntryPrice) * pointValue
	return p.UnrealizedPnL
}

func (p *Position) TotalPnL() float64 {
	return p.RealizedPnL + p.UnrealizedPnL
}

// IsReduction reports whether applying the signed delta shrinks the
// position's magnitude.
func (p *Position) IsReduction(delta float64) bool {
	if p.Quantity == 0 {
		return false
	}

	return math.Signbit(p.Quantity) != math.Signbit(delta)
}
