package database

import (
	"github.com/google/uuid"

	"github.com/fundedsim/engine/src/models"
)

// Store is the persistence contract required by the engine: durable,
// queryable storage for accounts, orders, executions, positions and
// rule-check audit records, with per-account read-modify-write atomicity
// on the fill path.
type Store interface {
	CreateAccount(account *models.Account) error
	GetAccount(id uuid.UUID) (*models.Account, error)
	SaveAccount(account *models.Account) error
	ListAccounts() ([]*models.Account, error)

	CreateOrder(order *models.Order) error
	GetOrder(id uuid.UUID) (*models.Order, error)
	SaveOrder(order *models.Order) error

	// ListRestingOrders returns every order the monitor must re-test:
	// submitted, working or partially filled.
	ListRestingOrders() ([]*models.Order, error)
	CountRestingOrders(accountID uuid.UUID) (int, error)

	SaveRuleCheck(record *models.RuleCheckRecord) error

	// GetOpenPosition returns models.ErrPositionNotFound when the account
	// holds no open position in the symbol.
	GetOpenPosition(accountID uuid.UUID, symbol string) (*models.Position, error)
	SavePosition(position *models.Position) error
	ListOpenPositions(accountID uuid.UUID) ([]*models.Position, error)

	// OpenContracts is the total absolute open quantity across the
	// account's open positions.
	OpenContracts(accountID uuid.UUID) (float64, error)

	ListExecutions(accountID uuid.UUID) ([]*models.Execution, error)

	// CommitFill persists one fill unit — execution, updated order,
	// updated position and updated account — atomically. A crash must
	// never leave a filled order beside a stale balance.
	CommitFill(order *models.Order, execution *models.Execution, position *models.Position, account *models.Account) error
}
