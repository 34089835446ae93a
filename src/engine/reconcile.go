package engine

import (
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/fundedsim/engine/src/database"
	"github.com/fundedsim/engine/src/models"
)

// Reconciler repairs state after an interrupted fill unit. Executions are
// the source of truth: order fill quantities, positions and account
// balances are re-derived from the execution log and overwritten when they
// drifted.
type Reconciler struct {
	store       database.Store
	instruments map[string]models.Instrument
	tiers       map[string]models.Tier
	ledger      *Ledger
	evaluator   *Evaluator
}

func NewReconciler(store database.Store, instruments map[string]models.Instrument, tiers map[string]models.Tier) *Reconciler {
	return &Reconciler{
		store:       store,
		instruments: instruments,
		tiers:       tiers,
		ledger:      NewLedger(),
		evaluator:   NewEvaluator(),
	}
}

// Run reconciles every account. Per-account failures are logged and do not
// stop the pass.
func (r *Reconciler) Run() error {
	accounts, err := r.store.ListAccounts()
	if err != nil {
		return fmt.Errorf("reconcile: list accounts: %w", err)
	}

	for _, account := range accounts {
		if err := r.reconcileAccount(account); err != nil {
			log.Errorf("reconcile: account %s: %v", account.ID, err)
		}
	}

	return nil
}

func (r *Reconciler) reconcileAccount(account *models.Account) error {
	executions, err := r.store.ListExecutions(account.ID)
	if err != nil {
		return err
	}

	if err := r.reconcileOrders(executions); err != nil {
		return err
	}

	balance := account.InitialBalance
	positions := make(map[string]*models.Position)

	for _, execution := range executions {
		instrument, ok := r.instruments[execution.Symbol]
		if !ok {
			log.Warnf("reconcile: unknown instrument %s, skipping execution %s", execution.Symbol, execution.ID)
			continue
		}

		position := r.ledger.PositionFor(positions[execution.Symbol], execution, execution.CreatedAt)
		positions[execution.Symbol] = position

		balance += r.ledger.ApplyExecution(position, execution, instrument)
	}

	for symbol, rebuilt := range positions {
		if err := r.reconcilePosition(account, symbol, rebuilt); err != nil {
			return err
		}
	}

	if math.Abs(balance-account.Balance) > 1e-6 {
		log.Warnf("reconcile: account %s balance %.2f differs from replayed %.2f, overwriting", account.ID, account.Balance, balance)
		account.Balance = balance

		if tier, ok := r.tiers[account.TierName]; ok {
			r.evaluator.Evaluate(account, tier)
		}

		if err := r.store.SaveAccount(account); err != nil {
			return err
		}
	}

	return nil
}

// reconcileOrders re-derives each order's filled quantity and average fill
// price from its executions.
func (r *Reconciler) reconcileOrders(executions []*models.Execution) error {
	byOrder := make(map[string][]*models.Execution)
	for _, execution := range executions {
		key := execution.OrderID.String()
		byOrder[key] = append(byOrder[key], execution)
	}

	for _, group := range byOrder {
		order, err := r.store.GetOrder(group[0].OrderID)
		if err != nil {
			if errors.Is(err, models.ErrOrderNotFound) {
				log.Warnf("reconcile: execution references missing order %s", group[0].OrderID)
				continue
			}

			return err
		}

		filled := 0.0
		weighted := 0.0
		for _, execution := range group {
			qty := math.Abs(execution.Quantity)
			filled += qty
			weighted += qty * execution.Price
		}

		if math.Abs(filled-order.FilledQuantity) <= 1e-9 {
			continue
		}

		log.Warnf("reconcile: order %s filled quantity %.2f differs from executions %.2f, overwriting", order.ID, order.FilledQuantity, filled)

		order.FilledQuantity = math.Min(filled, order.Quantity)
		if filled > 0 {
			order.AvgFillPrice = weighted / filled
		}

		if order.RemainingQuantity() <= 1e-9 {
			order.Status = models.OrderStatusFilled
		} else if !order.Status.IsTerminal() {
			order.Status = models.OrderStatusPartiallyFilled
		}

		if err := r.store.SaveOrder(order); err != nil {
			return err
		}
	}

	return nil
}

func (r *Reconciler) reconcilePosition(account *models.Account, symbol string, rebuilt *models.Position) error {
	stored, err := r.store.GetOpenPosition(account.ID, symbol)
	if err != nil && !errors.Is(err, models.ErrPositionNotFound) {
		return err
	}

	if stored == nil {
		if !rebuilt.Open {
			return nil
		}

		return r.store.SavePosition(rebuilt)
	}

	if math.Abs(stored.Quantity-rebuilt.Quantity) <= 1e-9 && math.Abs(stored.RealizedPnL-rebuilt.RealizedPnL) <= 1e-6 {
		return nil
	}

	log.Warnf("reconcile: position %s/%s drifted, overwriting from execution log", account.ID, symbol)

	stored.Quantity = rebuilt.Quantity
	stored.AvgEntryPrice = rebuilt.AvgEntryPrice
	stored.RealizedPnL = rebuilt.RealizedPnL
	stored.TotalBought = rebuilt.TotalBought
	stored.TotalSold = rebuilt.TotalSold
	stored.Open = rebuilt.Open
	stored.ClosedAt = rebuilt.ClosedAt

	return r.store.SavePosition(stored)
}
