package models

import (
	"fmt"
	"math"
)

// Instrument is the contract specification for a tradeable symbol. All
// prices on the feed and every fill are multiples of TickSize.
type Instrument struct {
	Symbol                string  `json:"symbol" yaml:"symbol"`
	TickSize              float64 `json:"tick_size" yaml:"tick_size"`
	TickValue             float64 `json:"tick_value" yaml:"tick_value"` // dollars per tick per contract
	BasePrice             float64 `json:"base_price" yaml:"base_price"`
	VolatilityTicks       int     `json:"volatility_ticks" yaml:"volatility_ticks"`
	MarginPerContract     float64 `json:"margin_per_contract" yaml:"margin_per_contract"`
	CommissionPerContract float64 `json:"commission_per_contract" yaml:"commission_per_contract"`
	FeePerContract        float64 `json:"fee_per_contract" yaml:"fee_per_contract"`
}

func (i Instrument) Validate() error {
	if i.Symbol == "" {
		return fmt.Errorf("instrument symbol is required")
	}

	if i.TickSize <= 0 {
		return fmt.Errorf("instrument %s: tick size must be greater than 0", i.Symbol)
	}

	if i.TickValue <= 0 {
		return fmt.Errorf("instrument %s: tick value must be greater than 0", i.Symbol)
	}

	if i.BasePrice <= 0 {
		return fmt.Errorf("instrument %s: base price must be greater than 0", i.Symbol)
	}

	return nil
}

// RoundToTick snaps a price to the nearest multiple of the tick size.
func (i Instrument) RoundToTick(price float64) float64 {
	return math.Round(price/i.TickSize) * i.TickSize
}

// PointValue converts a one point price move to dollars per contract.
func (i Instrument) PointValue() float64 {
	return i.TickValue / i.TickSize
}

// RoundTripCost estimates commission plus fees for entering and exiting
// the given quantity.
func (i Instrument) RoundTripCost(quantity float64) float64 {
	return 2 * quantity * (i.CommissionPerContract + i.FeePerContract)
}
