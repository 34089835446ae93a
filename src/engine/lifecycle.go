package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/fundedsim/engine/src/database"
	"github.com/fundedsim/engine/src/eventpubsub"
	"github.com/fundedsim/engine/src/marketdata"
	"github.com/fundedsim/engine/src/models"
)

// OrderRequest is a submission from the outside world, before an order
// exists for it.
type OrderRequest struct {
	AccountID   uuid.UUID        `json:"account_id"`
	Symbol      string           `json:"symbol"`
	Side        models.OrderSide `json:"side"`
	Type        models.OrderType `json:"type"`
	Quantity    float64          `json:"quantity"`
	LimitPrice  *float64         `json:"limit_price,omitempty"`
	StopPrice   *float64         `json:"stop_price,omitempty"`
	TrailAmount *float64         `json:"trail_amount,omitempty"`
}

func (req *OrderRequest) Validate() error {
	if err := req.Side.Validate(); err != nil {
		return fmt.Errorf("invalid side: %w", err)
	}

	if err := req.Type.Validate(); err != nil {
		return fmt.Errorf("invalid order type: %w", err)
	}

	if req.Quantity <= 0 {
		return models.ErrInvalidOrderQuantity
	}

	if req.LimitPrice != nil && *req.LimitPrice <= 0 {
		return fmt.Errorf("limit price must be greater than 0")
	}

	if req.StopPrice != nil && *req.StopPrice <= 0 {
		return fmt.Errorf("stop price must be greater than 0")
	}

	switch req.Type {
	case models.Limit:
		if req.LimitPrice == nil {
			return fmt.Errorf("limit order requires a limit price")
		}
	case models.Stop:
		if req.StopPrice == nil {
			return fmt.Errorf("stop order requires a stop price")
		}
	case models.StopLimit:
		if req.LimitPrice == nil || req.StopPrice == nil {
			return fmt.Errorf("stop-limit order requires both a stop price and a limit price")
		}
	case models.TrailingStop:
		if req.TrailAmount == nil || *req.TrailAmount <= 0 {
			return fmt.Errorf("trailing stop order requires a positive trail amount")
		}
	}

	return nil
}

// SweepAction describes what a monitor pass did with one resting order.
type SweepAction int

const (
	SweepActionNone SweepAction = iota
	SweepActionTriggered
	SweepActionFilled
)

// Lifecycle owns the order state machine from submission to terminal
// state, orchestrating validator, simulator, ledger and evaluator for each
// order. All balance mutations flow through its fill path.
type Lifecycle struct {
	store     database.Store
	feed      *marketdata.PriceFeed
	validator *Validator
	simulator *Simulator
	ledger    *Ledger
	evaluator *Evaluator
	publisher eventpubsub.Publisher
	tiers     map[string]models.Tier
	locks     *accountLocks
	now       func() time.Time
}

func NewLifecycle(store database.Store, feed *marketdata.PriceFeed, validator *Validator, simulator *Simulator, evaluator *Evaluator, publisher eventpubsub.Publisher, tiers map[string]models.Tier) *Lifecycle {
	return &Lifecycle{
		store:     store,
		feed:      feed,
		validator: validator,
		simulator: simulator,
		ledger:    NewLedger(),
		evaluator: evaluator,
		publisher: publisher,
		tiers:     tiers,
		locks:     newAccountLocks(),
		now:       time.Now,
	}
}

// SetClock overrides the lifecycle's time source.
func (m *Lifecycle) SetClock(now func() time.Time) {
	m.now = now
}

func (m *Lifecycle) tierFor(account *models.Account) (models.Tier, error) {
	tier, ok := m.tiers[account.TierName]
	if !ok {
		return models.Tier{}, fmt.Errorf("%w: %s", models.ErrUnknownTier, account.TierName)
	}

	return tier, nil
}

// SubmitOrder runs the full submission pipeline: validation snapshot,
// audit record, reject-or-accept, then an immediate fill attempt. A
// rejected order is a structured result, not an error: the order comes
// back with status rejected and itemized reasons.
func (m *Lifecycle) SubmitOrder(req OrderRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lock := m.locks.get(req.AccountID)
	lock.Lock()
	defer lock.Unlock()

	account, err := m.store.GetAccount(req.AccountID)
	if err != nil {
		return nil, err
	}

	tier, err := m.tierFor(account)
	if err != nil {
		return nil, err
	}

	if !account.Status.IsTradingAllowed() {
		return nil, fmt.Errorf("%w: %s", models.ErrTradingNotAllowed, account.Status)
	}

	now := m.now()
	order := models.NewOrder(account.ID, req.Symbol, req.Side, req.Type, req.Quantity, req.LimitPrice, req.StopPrice, req.TrailAmount, now)

	if err := m.store.CreateOrder(order); err != nil {
		return nil, fmt.Errorf("submit order: persist: %w", err)
	}

	var instrument *models.Instrument
	if inst, ok := m.feed.Instrument(order.Symbol); ok {
		instrument = &inst
	}

	openContracts, err := m.store.OpenContracts(account.ID)
	if err != nil {
		return nil, fmt.Errorf("submit order: open contracts: %w", err)
	}

	snapshot := AccountSnapshot{
		Balance:           account.Balance,
		HighWaterMark:     account.HighWaterMark,
		DailyPnL:          account.DailyPnL,
		DailyLossLimitHit: account.DailyLossLimitHit,
		OpenContracts:     openContracts,
	}

	results := m.validator.Validate(snapshot, tier, instrument, order.Quantity)
	record := models.NewRuleCheckRecord(order.ID, account.ID, results, now)

	if err := m.store.SaveRuleCheck(record); err != nil {
		return nil, fmt.Errorf("submit order: rule check audit: %w", err)
	}

	if !record.Passed {
		order.Reject(record.JoinedFailureReasons())

		if err := m.store.SaveOrder(order); err != nil {
			return nil, fmt.Errorf("submit order: persist rejection: %w", err)
		}

		m.publisher.PublishOrderStatus(order)

		return order, nil
	}

	order.Status = models.OrderStatusSubmitted

	price, err := m.feed.CurrentPrice(order.Symbol)
	if err != nil {
		// No price means nothing can fill; park the order for the monitor.
		log.Warnf("submit order: %v", err)
		order.Status = models.OrderStatusWorking
		if saveErr := m.store.SaveOrder(order); saveErr != nil {
			return nil, fmt.Errorf("submit order: persist: %w", saveErr)
		}

		account.OpenOrderCount, err = m.store.CountRestingOrders(account.ID)
		if err != nil {
			return nil, fmt.Errorf("submit order: count resting orders: %w", err)
		}

		if err := m.store.SaveAccount(account); err != nil {
			return nil, fmt.Errorf("submit order: persist account counters: %w", err)
		}

		m.publisher.PublishOrderStatus(order)
		return order, nil
	}

	if instrument != nil {
		UpdateTrailingStop(order, *instrument, price)
		UpdateStopLimitTrigger(order, price)

		if _, err := m.fillLocked(order, account, tier, *instrument, price, false); err != nil {
			return nil, err
		}
	}

	if !order.Status.IsTerminal() && order.Status != models.OrderStatusPartiallyFilled {
		order.Status = models.OrderStatusWorking
		if err := m.store.SaveOrder(order); err != nil {
			return nil, fmt.Errorf("submit order: persist working state: %w", err)
		}

		account.OpenOrderCount, err = m.store.CountRestingOrders(account.ID)
		if err != nil {
			return nil, fmt.Errorf("submit order: count resting orders: %w", err)
		}

		if err := m.store.SaveAccount(account); err != nil {
			return nil, fmt.Errorf("submit order: persist account counters: %w", err)
		}
	}

	m.publisher.PublishOrderStatus(order)

	return order, nil
}

// CancelOrder cancels a pending, submitted or working order. Cancelling an
// order that already reached a terminal state is a silent no-op: the
// concurrent path won.
func (m *Lifecycle) CancelOrder(orderID uuid.UUID) (*models.Order, error) {
	order, err := m.store.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	lock := m.locks.get(order.AccountID)
	lock.Lock()
	defer lock.Unlock()

	// Re-fetch under the lock: a racing fill may have completed it.
	order, err = m.store.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	if order.Status.IsTerminal() {
		return order, nil
	}

	if err := order.Cancel(); err != nil {
		return nil, err
	}

	if err := m.store.SaveOrder(order); err != nil {
		return nil, fmt.Errorf("cancel order: persist: %w", err)
	}

	account, err := m.store.GetAccount(order.AccountID)
	if err == nil {
		account.OpenOrderCount, _ = m.store.CountRestingOrders(account.ID)
		if saveErr := m.store.SaveAccount(account); saveErr != nil {
			log.Errorf("cancel order: persist account counters: %v", saveErr)
		}
	}

	m.publisher.PublishOrderStatus(order)

	return order, nil
}

// ProcessRestingOrder re-tests one resting order against the given price
// and completes it when its trigger condition is met. An order that has
// already left the working state is skipped without error, which is what
// makes repeated sweeps idempotent.
func (m *Lifecycle) ProcessRestingOrder(orderID uuid.UUID, price float64) (SweepAction, error) {
	order, err := m.store.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			return SweepActionNone, nil
		}

		return SweepActionNone, err
	}

	lock := m.locks.get(order.AccountID)
	lock.Lock()
	defer lock.Unlock()

	// Re-fetch under the lock; a concurrent submission path may have
	// filled or cancelled it since the sweep listed it.
	order, err = m.store.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			return SweepActionNone, nil
		}

		return SweepActionNone, err
	}

	if !order.Status.IsFillable() {
		return SweepActionNone, nil
	}

	account, err := m.store.GetAccount(order.AccountID)
	if err != nil {
		return SweepActionNone, err
	}

	tier, err := m.tierFor(account)
	if err != nil {
		return SweepActionNone, err
	}

	instrument, ok := m.feed.Instrument(order.Symbol)
	if !ok {
		return SweepActionNone, fmt.Errorf("%w: %s", models.ErrUnknownInstrument, order.Symbol)
	}

	action := SweepActionNone

	if UpdateTrailingStop(order, instrument, price) {
		if err := m.store.SaveOrder(order); err != nil {
			return action, fmt.Errorf("process resting order: persist trail level: %w", err)
		}
	}

	if UpdateStopLimitTrigger(order, price) {
		action = SweepActionTriggered
		if err := m.store.SaveOrder(order); err != nil {
			return action, fmt.Errorf("process resting order: persist stop trigger: %w", err)
		}
	}

	filled, err := m.fillLocked(order, account, tier, instrument, price, true)
	if err != nil {
		return action, err
	}

	if filled {
		return SweepActionFilled, nil
	}

	if order.Status == models.OrderStatusSubmitted {
		order.Status = models.OrderStatusWorking
		if err := m.store.SaveOrder(order); err != nil {
			return action, fmt.Errorf("process resting order: persist working state: %w", err)
		}
	}

	return action, nil
}

// fillLocked runs the fill unit with the account lock held. The steps —
// execution, order quantities, ledger, balance, evaluator, counters — are
// persisted through a single CommitFill so a crash cannot split them.
func (m *Lifecycle) fillLocked(order *models.Order, account *models.Account, tier models.Tier, instrument models.Instrument, price float64, resting bool) (bool, error) {
	if !order.Status.IsFillable() {
		return false, nil
	}

	fill, ok, err := m.simulator.TryFill(order, instrument, price, resting)
	if err != nil {
		return false, fmt.Errorf("fill: %w", err)
	}

	if !ok {
		return false, nil
	}

	now := m.now()

	// (a) the execution fact
	execution := models.NewExecution(order, fill.Quantity, fill.Price, fill.Slippage, fill.Commission, fill.Fees, now)

	// (b) order quantities and average fill price
	if err := order.ApplyExecution(execution); err != nil {
		return false, fmt.Errorf("fill: apply execution: %w", err)
	}

	// (c) position ledger
	existing, err := m.store.GetOpenPosition(account.ID, order.Symbol)
	if err != nil && !errors.Is(err, models.ErrPositionNotFound) {
		return false, fmt.Errorf("fill: load position: %w", err)
	}

	position := m.ledger.PositionFor(existing, execution, now)
	wasOpen := existing != nil && existing.Open

	realized := m.ledger.ApplyExecution(position, execution, instrument)
	position.MarkToMarket(price, instrument.PointValue())

	// (d) account balance and daily P&L
	account.Balance += realized
	account.DailyPnL += realized
	account.TradedToday = true

	// (e) account evaluation
	statusChanged := m.evaluator.Evaluate(account, tier)

	// (f) open-order and open-position counters
	restingCount, err := m.store.CountRestingOrders(account.ID)
	if err != nil {
		return false, fmt.Errorf("fill: count resting orders: %w", err)
	}

	// The count reflects persisted statuses; this order changes sets in the
	// same commit. A resting order (monitor path) leaves the set when it
	// completes; a submission-path order is still stored as pending and
	// joins the set only if it stays fillable.
	if resting {
		if order.Status.IsTerminal() {
			restingCount--
		}
	} else if !order.Status.IsTerminal() {
		restingCount++
	}
	if restingCount < 0 {
		restingCount = 0
	}
	account.OpenOrderCount = restingCount

	openPositions, err := m.store.ListOpenPositions(account.ID)
	if err != nil {
		return false, fmt.Errorf("fill: list open positions: %w", err)
	}

	positionCount := len(openPositions)
	if wasOpen && !position.Open {
		positionCount--
	} else if !wasOpen && position.Open {
		positionCount++
	}
	if positionCount < 0 {
		positionCount = 0
	}
	account.OpenPositionCount = positionCount

	if err := m.store.CommitFill(order, execution, position, account); err != nil {
		return false, fmt.Errorf("fill: commit: %w", err)
	}

	log.WithFields(log.Fields{
		"order":    order.ID,
		"symbol":   order.Symbol,
		"quantity": execution.Quantity,
		"price":    execution.Price,
		"realized": realized,
		"balance":  account.Balance,
	}).Info("order filled")

	m.publisher.PublishOrderStatus(order)

	if statusChanged {
		m.publisher.PublishAccountStatus(account)
	}

	return true, nil
}

// RollDay applies the end-of-day evaluator housekeeping to one account.
func (m *Lifecycle) RollDay(accountID uuid.UUID) (*models.Account, error) {
	lock := m.locks.get(accountID)
	lock.Lock()
	defer lock.Unlock()

	account, err := m.store.GetAccount(accountID)
	if err != nil {
		return nil, err
	}

	tier, err := m.tierFor(account)
	if err != nil {
		return nil, err
	}

	before := account.Status
	m.evaluator.RollDay(account, tier)

	if err := m.store.SaveAccount(account); err != nil {
		return nil, fmt.Errorf("roll day: persist: %w", err)
	}

	if account.Status != before {
		m.publisher.PublishAccountStatus(account)
	}

	return account, nil
}
