package models

import "fmt"

// Tier is the rule set an evaluation account is graded against. Tiers are
// configuration, not database state; accounts reference them by name.
type Tier struct {
	Name                string  `json:"name" yaml:"name"`
	StartingBalance     float64 `json:"starting_balance" yaml:"starting_balance"`
	MaxDrawdown         float64 `json:"max_drawdown" yaml:"max_drawdown"`
	DailyLossLimit      float64 `json:"daily_loss_limit" yaml:"daily_loss_limit"`
	ProfitTarget        float64 `json:"profit_target" yaml:"profit_target"`
	MaxQuantityPerTrade float64 `json:"max_quantity_per_trade" yaml:"max_quantity_per_trade"`
	MaxOpenQuantity     float64 `json:"max_open_quantity" yaml:"max_open_quantity"`
	MinTradingDays      int     `json:"min_trading_days" yaml:"min_trading_days"`
}

func (t Tier) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tier name is required")
	}

	if t.StartingBalance <= 0 {
		return fmt.Errorf("tier %s: starting balance must be greater than 0", t.Name)
	}

	if t.MaxDrawdown <= 0 {
		return fmt.Errorf("tier %s: max drawdown must be greater than 0", t.Name)
	}

	if t.MaxDrawdown >= t.StartingBalance {
		return fmt.Errorf("tier %s: max drawdown must be below the starting balance", t.Name)
	}

	if t.DailyLossLimit <= 0 {
		return fmt.Errorf("tier %s: daily loss limit must be greater than 0", t.Name)
	}

	if t.ProfitTarget <= 0 {
		return fmt.Errorf("tier %s: profit target must be greater than 0", t.Name)
	}

	return nil
}
