package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fundedsim/engine/src/models"
)

type AccountRecord struct {
	gorm.Model
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Tier                string    `gorm:"column:tier;type:text;not null"`
	Status              string    `gorm:"column:status;type:text;not null"`
	Balance             float64   `gorm:"column:balance;type:numeric;not null"`
	InitialBalance      float64   `gorm:"column:initial_balance;type:numeric;not null"`
	HighWaterMark       float64   `gorm:"column:high_water_mark;type:numeric;not null"`
	DrawdownThreshold   float64   `gorm:"column:drawdown_threshold;type:numeric;not null"`
	DailyPnL            float64   `gorm:"column:daily_pnl;type:numeric;not null"`
	DailyLossLimitHit   bool      `gorm:"column:daily_loss_limit_hit;not null"`
	ProfitTargetReached bool      `gorm:"column:profit_target_reached;not null"`
	TradingDays         int       `gorm:"column:trading_days;not null"`
	TradedToday         bool      `gorm:"column:traded_today;not null"`
	OpenOrderCount      int       `gorm:"column:open_order_count;not null"`
	OpenPositionCount   int       `gorm:"column:open_position_count;not null"`
	FailureReason       *string   `gorm:"column:failure_reason;type:text"`
	OpenedOn            time.Time `gorm:"column:opened_on;type:timestamptz;not null"`
}

type OrderRecord struct {
	gorm.Model
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey"`
	AccountID     uuid.UUID     `gorm:"column:account_id;type:uuid;not null;index:idx_order_account"`
	Account       AccountRecord `gorm:"foreignKey:AccountID"`
	Symbol        string        `gorm:"column:symbol;type:text;not null"`
	Side          string        `gorm:"column:side;type:text;not null"`
	OrderType     string        `gorm:"column:order_type;type:text;not null"`
	Quantity      float64       `gorm:"column:quantity;type:numeric;not null"`
	FilledQty     float64       `gorm:"column:filled_quantity;type:numeric;not null"`
	LimitPrice    *float64      `gorm:"column:limit_price;type:numeric"`
	StopPrice     *float64      `gorm:"column:stop_price;type:numeric"`
	TrailAmount   *float64      `gorm:"column:trail_amount;type:numeric"`
	TrailingStop  *float64      `gorm:"column:trailing_stop;type:numeric"`
	StopTriggered bool          `gorm:"column:stop_triggered;not null"`
	AvgFillPrice  float64       `gorm:"column:avg_fill_price;type:numeric;not null"`
	Status        string        `gorm:"column:status;type:text;not null;index:idx_order_status"`
	RejectReason  *string       `gorm:"column:reject_reason;type:text"`
	PlacedOn      time.Time     `gorm:"column:placed_on;type:timestamptz;not null"`
}

type ExecutionRecord struct {
	gorm.Model
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID   `gorm:"column:order_id;type:uuid;not null;index:idx_execution_order"`
	Order      OrderRecord `gorm:"foreignKey:OrderID"`
	AccountID  uuid.UUID   `gorm:"column:account_id;type:uuid;not null;index:idx_execution_account"`
	Symbol     string      `gorm:"column:symbol;type:text;not null"`
	Quantity   float64     `gorm:"column:quantity;type:numeric;not null"`
	Price      float64     `gorm:"column:price;type:numeric;not null"`
	Slippage   float64     `gorm:"column:slippage;type:numeric;not null"`
	Commission float64     `gorm:"column:commission;type:numeric;not null"`
	Fees       float64     `gorm:"column:fees;type:numeric;not null"`
	FilledOn   time.Time   `gorm:"column:filled_on;type:timestamptz;not null"`
}

type PositionRecord struct {
	gorm.Model
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey"`
	AccountID     uuid.UUID     `gorm:"column:account_id;type:uuid;not null;index:idx_position_account"`
	Account       AccountRecord `gorm:"foreignKey:AccountID"`
	Symbol        string        `gorm:"column:symbol;type:text;not null"`
	Quantity      float64       `gorm:"column:quantity;type:numeric;not null"`
	AvgEntryPrice float64       `gorm:"column:avg_entry_price;type:numeric;not null"`
	RealizedPnL   float64       `gorm:"column:realized_pnl;type:numeric;not null"`
	TotalBought   float64       `gorm:"column:total_bought;type:numeric;not null"`
	TotalSold     float64       `gorm:"column:total_sold;type:numeric;not null"`
	Open          bool          `gorm:"column:open;not null;index:idx_position_open"`
	OpenedOn      time.Time     `gorm:"column:opened_on;type:timestamptz;not null"`
	ClosedOn      *time.Time    `gorm:"column:closed_on;type:timestamptz"`
}

type RuleCheckRecord struct {
	gorm.Model
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID   `gorm:"column:order_id;type:uuid;not null;index:idx_rule_check_order"`
	Order     OrderRecord `gorm:"foreignKey:OrderID"`
	AccountID uuid.UUID   `gorm:"column:account_id;type:uuid;not null"`
	Passed    bool        `gorm:"column:passed;not null"`
	Results   string      `gorm:"column:results;type:json;not null"`
	CheckedOn time.Time   `gorm:"column:checked_on;type:timestamptz;not null"`
}

func accountToRecord(a *models.Account) *AccountRecord {
	return &AccountRecord{
		ID:                  a.ID,
		Tier:                a.TierName,
		Status:              string(a.Status),
		Balance:             a.Balance,
		InitialBalance:      a.InitialBalance,
		HighWaterMark:       a.HighWaterMark,
		DrawdownThreshold:   a.DrawdownThreshold,
		DailyPnL:            a.DailyPnL,
		DailyLossLimitHit:   a.DailyLossLimitHit,
		ProfitTargetReached: a.ProfitTargetReached,
		TradingDays:         a.TradingDays,
		TradedToday:         a.TradedToday,
		OpenOrderCount:      a.OpenOrderCount,
		OpenPositionCount:   a.OpenPositionCount,
		FailureReason:       a.FailureReason,
		OpenedOn:            a.CreatedAt,
	}
}

func (r *AccountRecord) toAccount() *models.Account {
	return &models.Account{
		ID:                  r.ID,
		TierName:            r.Tier,
		Status:              models.AccountStatus(r.Status),
		Balance:             r.Balance,
		InitialBalance:      r.InitialBalance,
		HighWaterMark:       r.HighWaterMark,
		DrawdownThreshold:   r.DrawdownThreshold,
		DailyPnL:            r.DailyPnL,
		DailyLossLimitHit:   r.DailyLossLimitHit,
		ProfitTargetReached: r.ProfitTargetReached,
		TradingDays:         r.TradingDays,
		TradedToday:         r.TradedToday,
		OpenOrderCount:      r.OpenOrderCount,
		OpenPositionCount:   r.OpenPositionCount,
		FailureReason:       r.FailureReason,
		CreatedAt:           r.OpenedOn,
	}
}

func orderToRecord(o *models.Order) *OrderRecord {
	return &OrderRecord{
		ID:            o.ID,
		AccountID:     o.AccountID,
		Symbol:        o.Symbol,
		Side:          string(o.Side),
		OrderType:     string(o.Type),
		Quantity:      o.Quantity,
		FilledQty:     o.FilledQuantity,
		LimitPrice:    o.LimitPrice,
		StopPrice:     o.StopPrice,
		TrailAmount:   o.TrailAmount,
		TrailingStop:  o.TrailingStop,
		StopTriggered: o.StopTriggered,
		AvgFillPrice:  o.AvgFillPrice,
		Status:        string(o.Status),
		RejectReason:  o.RejectReason,
		PlacedOn:      o.CreatedAt,
	}
}

func (r *OrderRecord) toOrder(executions []*models.Execution) *models.Order {
	return &models.Order{
		ID:             r.ID,
		AccountID:      r.AccountID,
		Symbol:         r.Symbol,
		Side:           models.OrderSide(r.Side),
		Type:           models.OrderType(r.OrderType),
		Quantity:       r.Quantity,
		FilledQuantity: r.FilledQty,
		LimitPrice:     r.LimitPrice,
		StopPrice:      r.StopPrice,
		TrailAmount:    r.TrailAmount,
		TrailingStop:   r.TrailingStop,
		StopTriggered:  r.StopTriggered,
		AvgFillPrice:   r.AvgFillPrice,
		Status:         models.OrderStatus(r.Status),
		RejectReason:   r.RejectReason,
		Executions:     executions,
		CreatedAt:      r.PlacedOn,
	}
}

func executionToRecord(e *models.Execution) *ExecutionRecord {
	return &ExecutionRecord{
		ID:         e.ID,
		OrderID:    e.OrderID,
		AccountID:  e.AccountID,
		Symbol:     e.Symbol,
		Quantity:   e.Quantity,
		Price:      e.Price,
		Slippage:   e.Slippage,
		Commission: e.Commission,
		Fees:       e.Fees,
		FilledOn:   e.CreatedAt,
	}
}

func (r *ExecutionRecord) toExecution() *models.Execution {
	return &models.Execution{
		ID:         r.ID,
		OrderID:    r.OrderID,
		AccountID:  r.AccountID,
		Symbol:     r.Symbol,
		Quantity:   r.Quantity,
		Price:      r.Price,
		Slippage:   r.Slippage,
		Commission: r.Commission,
		Fees:       r.Fees,
		CreatedAt:  r.FilledOn,
	}
}

func positionToRecord(p *models.Position) *PositionRecord {
	return &PositionRecord{
		ID:            p.ID,
		AccountID:     p.AccountID,
		Symbol:        p.Symbol,
		Quantity:      p.Quantity,
		AvgEntryPrice: p.AvgEntryPrice,
		RealizedPnL:   p.RealizedPnL,
		TotalBought:   p.TotalBought,
		TotalSold:     p.TotalSold,
		Open:          p.Open,
		OpenedOn:      p.OpenedAt,
		ClosedOn:      p.ClosedAt,
	}
}

func (r *PositionRecord) toPosition() *models.Position {
	return &models.Position{
		ID:            r.ID,
		AccountID:     r.AccountID,
		Symbol:        r.Symbol,
		Quantity:      r.Quantity,
		AvgEntryPrice: r.AvgEntryPrice,
		RealizedPnL:   r.RealizedPnL,
		TotalBought:   r.TotalBought,
		TotalSold:     r.TotalSold,
		Open:          r.Open,
		OpenedAt:      r.OpenedOn,
		ClosedAt:      r.ClosedOn,
	}
}
