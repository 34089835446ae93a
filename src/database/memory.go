package database

import (
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fundedsim/engine/src/models"
)

// MemoryStore is an in-memory Store used by tests and by the demo runtime
// when no database is configured. It copies on read and write so callers
// exercise real read-modify-write cycles instead of aliasing.
type MemoryStore struct {
	mu         sync.RWMutex
	accounts   map[uuid.UUID]*models.Account
	orders     map[uuid.UUID]*models.Order
	executions []*models.Execution
	positions  map[uuid.UUID]*models.Position
	ruleChecks map[uuid.UUID]*models.RuleCheckRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[uuid.UUID]*models.Account),
		orders:     make(map[uuid.UUID]*models.Order),
		positions:  make(map[uuid.UUID]*models.Position),
		ruleChecks: make(map[uuid.UUID]*models.RuleCheckRecord),
	}
}

func copyAccount(a *models.Account) *models.Account {
	clone := *a
	return &clone
}

func copyOrder(o *models.Order) *models.Order {
	clone := *o
	clone.Executions = make([]*models.Execution, len(o.Executions))
	for i, exec := range o.Executions {
		execClone := *exec
		clone.Executions[i] = &execClone
	}

	return &clone
}

func copyPosition(p *models.Position) *models.Position {
	clone := *p
	return &clone
}

func (s *MemoryStore) CreateAccount(account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[account.ID] = copyAccount(account)
	return nil
}

func (s *MemoryStore) GetAccount(id uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, models.ErrAccountNotFound
	}

	return copyAccount(account), nil
}

func (s *MemoryStore) SaveAccount(account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; !ok {
		return models.ErrAccountNotFound
	}

	s.accounts[account.ID] = copyAccount(account)
	return nil
}

func (s *MemoryStore) ListAccounts() ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]*models.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, copyAccount(account))
	}

	return accounts, nil
}

func (s *MemoryStore) CreateOrder(order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[order.ID] = copyOrder(order)
	return nil
}

func (s *MemoryStore) GetOrder(id uuid.UUID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}

	return copyOrder(order), nil
}

func (s *MemoryStore) SaveOrder(order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; !ok {
		return models.ErrOrderNotFound
	}

	s.orders[order.ID] = copyOrder(order)
	return nil
}

func (s *MemoryStore) ListRestingOrders() ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []*models.Order
	for _, order := range s.orders {
		if order.Status.IsResting() {
			orders = append(orders, copyOrder(order))
		}
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	return orders, nil
}

func (s *MemoryStore) CountRestingOrders(accountID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, order := range s.orders {
		if order.AccountID == accountID && order.Status.IsResting() {
			count++
		}
	}

	return count, nil
}

func (s *MemoryStore) SaveRuleCheck(record *models.RuleCheckRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *record
	clone.Results = append([]models.RuleCheckResult{}, record.Results...)
	s.ruleChecks[record.ID] = &clone
	return nil
}

// RuleChecks returns the audit records for an order, used by tests.
func (s *MemoryStore) RuleChecks(orderID uuid.UUID) []*models.RuleCheckRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*models.RuleCheckRecord
	for _, record := range s.ruleChecks {
		if record.OrderID == orderID {
			clone := *record
			records = append(records, &clone)
		}
	}

	return records
}

func (s *MemoryStore) GetOpenPosition(accountID uuid.UUID, symbol string) (*models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, position := range s.positions {
		if position.AccountID == accountID && position.Symbol == symbol && position.Open {
			return copyPosition(position), nil
		}
	}

	return nil, models.ErrPositionNotFound
}

func (s *MemoryStore) SavePosition(position *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[position.ID] = copyPosition(position)
	return nil
}

func (s *MemoryStore) ListOpenPositions(accountID uuid.UUID) ([]*models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var positions []*models.Position
	for _, position := range s.positions {
		if position.AccountID == accountID && position.Open {
			positions = append(positions, copyPosition(position))
		}
	}

	return positions, nil
}

func (s *MemoryStore) OpenContracts(accountID uuid.UUID) (float64, error) {
	positions, err := s.ListOpenPositions(accountID)
	if err != nil {
		return 0, err
	}

	total := 0.0
	for _, position := range positions {
		total += math.Abs(position.Quantity)
	}

	return total, nil
}

func (s *MemoryStore) ListExecutions(accountID uuid.UUID) ([]*models.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var executions []*models.Execution
	for _, exec := range s.executions {
		if exec.AccountID == accountID {
			clone := *exec
			executions = append(executions, &clone)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].CreatedAt.Before(executions[j].CreatedAt)
	})

	return executions, nil
}

func (s *MemoryStore) CommitFill(order *models.Order, execution *models.Execution, position *models.Position, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; !ok {
		return models.ErrOrderNotFound
	}

	if _, ok := s.accounts[account.ID]; !ok {
		return models.ErrAccountNotFound
	}

	execClone := *execution
	s.executions = append(s.executions, &execClone)
	s.orders[order.ID] = copyOrder(order)
	s.positions[position.ID] = copyPosition(position)
	s.accounts[account.ID] = copyAccount(account)

	return nil
}
