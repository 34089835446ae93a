package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fundedsim/engine/src/logger"
	"github.com/fundedsim/engine/src/models"
)

// PostgresStore implements Store on top of gorm/Postgres.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(dsn string, log *logrus.Logger) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("database: open postgres: %w", err)
	}

	if err := db.AutoMigrate(&AccountRecord{}, &OrderRecord{}, &ExecutionRecord{}, &PositionRecord{}, &RuleCheckRecord{}); err != nil {
		return nil, fmt.Errorf("database: migrate: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateAccount(account *models.Account) error {
	if err := s.db.Create(accountToRecord(account)).Error; err != nil {
		return fmt.Errorf("database: create account: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetAccount(id uuid.UUID) (*models.Account, error) {
	var record AccountRecord
	if err := s.db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrAccountNotFound
		}

		return nil, fmt.Errorf("database: get account: %w", err)
	}

	return record.toAccount(), nil
}

func (s *PostgresStore) SaveAccount(account *models.Account) error {
	record := accountToRecord(account)
	if err := s.db.Model(&AccountRecord{}).Where("id = ?", account.ID).Select("*").Omit("created_at").Updates(record).Error; err != nil {
		return fmt.Errorf("database: save account: %w", err)
	}

	return nil
}

func (s *PostgresStore) ListAccounts() ([]*models.Account, error) {
	var records []AccountRecord
	if err := s.db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("database: list accounts: %w", err)
	}

	accounts := make([]*models.Account, 0, len(records))
	for i := range records {
		accounts = append(accounts, records[i].toAccount())
	}

	return accounts, nil
}

func (s *PostgresStore) CreateOrder(order *models.Order) error {
	if err := s.db.Create(orderToRecord(order)).Error; err != nil {
		return fmt.Errorf("database: create order: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetOrder(id uuid.UUID) (*models.Order, error) {
	var record OrderRecord
	if err := s.db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrOrderNotFound
		}

		return nil, fmt.Errorf("database: get order: %w", err)
	}

	executions, err := s.listOrderExecutions(record.ID)
	if err != nil {
		return nil, err
	}

	return record.toOrder(executions), nil
}

func (s *PostgresStore) SaveOrder(order *models.Order) error {
	record := orderToRecord(order)
	if err := s.db.Model(&OrderRecord{}).Where("id = ?", order.ID).Select("*").Omit("created_at").Updates(record).Error; err != nil {
		return fmt.Errorf("database: save order: %w", err)
	}

	return nil
}

func (s *PostgresStore) ListRestingOrders() ([]*models.Order, error) {
	var records []OrderRecord
	statuses := []string{
		string(models.OrderStatusSubmitted),
		string(models.OrderStatusWorking),
		string(models.OrderStatusPartiallyFilled),
	}

	if err := s.db.Where("status IN ?", statuses).Order("placed_on asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("database: list resting orders: %w", err)
	}

	orders := make([]*models.Order, 0, len(records))
	for i := range records {
		executions, err := s.listOrderExecutions(records[i].ID)
		if err != nil {
			return nil, err
		}

		orders = append(orders, records[i].toOrder(executions))
	}

	return orders, nil
}

func (s *PostgresStore) CountRestingOrders(accountID uuid.UUID) (int, error) {
	statuses := []string{
		string(models.OrderStatusSubmitted),
		string(models.OrderStatusWorking),
		string(models.OrderStatusPartiallyFilled),
	}

	var count int64
	if err := s.db.Model(&OrderRecord{}).Where("account_id = ? AND status IN ?", accountID, statuses).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("database: count resting orders: %w", err)
	}

	return int(count), nil
}

func (s *PostgresStore) SaveRuleCheck(record *models.RuleCheckRecord) error {
	results, err := json.Marshal(record.Results)
	if err != nil {
		return fmt.Errorf("database: marshal rule check results: %w", err)
	}

	row := &RuleCheckRecord{
		ID:        record.ID,
		OrderID:   record.OrderID,
		AccountID: record.AccountID,
		Passed:    record.Passed,
		Results:   string(results),
		CheckedOn: record.CreatedAt,
	}

	if err := s.db.Create(row).Error; err != nil {
		return fmt.Errorf("database: save rule check: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetOpenPosition(accountID uuid.UUID, symbol string) (*models.Position, error) {
	var record PositionRecord
	if err := s.db.Where("account_id = ? AND symbol = ? AND open = true", accountID, symbol).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrPositionNotFound
		}

		return nil, fmt.Errorf("database: get open position: %w", err)
	}

	return record.toPosition(), nil
}

func (s *PostgresStore) SavePosition(position *models.Position) error {
	record := positionToRecord(position)
	result := s.db.Model(&PositionRecord{}).Where("id = ?", position.ID).Select("*").Omit("created_at").Updates(record)
	if result.Error != nil {
		return fmt.Errorf("database: save position: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		if err := s.db.Create(record).Error; err != nil {
			return fmt.Errorf("database: create position: %w", err)
		}
	}

	return nil
}

func (s *PostgresStore) ListOpenPositions(accountID uuid.UUID) ([]*models.Position, error) {
	var records []PositionRecord
	if err := s.db.Where("account_id = ? AND open = true", accountID).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("database: list open positions: %w", err)
	}

	positions := make([]*models.Position, 0, len(records))
	for i := range records {
		positions = append(positions, records[i].toPosition())
	}

	return positions, nil
}

func (s *PostgresStore) OpenContracts(accountID uuid.UUID) (float64, error) {
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

func (s *PostgresStore) ListExecutions(accountID uuid.UUID) ([]*models.Execution, error) {
	var records []ExecutionRecord
	if err := s.db.Where("account_id = ?", accountID).Order("filled_on asc, created_at asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("database: list executions: %w", err)
	}

	executions := make([]*models.Execution, 0, len(records))
	for i := range records {
		executions = append(executions, records[i].toExecution())
	}

	return executions, nil
}

func (s *PostgresStore) listOrderExecutions(orderID uuid.UUID) ([]*models.Execution, error) {
	var records []ExecutionRecord
	if err := s.db.Where("order_id = ?", orderID).Order("filled_on asc, created_at asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("database: list order executions: %w", err)
	}

	executions := make([]*models.Execution, 0, len(records))
	for i := range records {
		executions = append(executions, records[i].toExecution())
	}

	return executions, nil
}

func (s *PostgresStore) CommitFill(order *models.Order, execution *models.Execution, position *models.Position, account *models.Account) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(executionToRecord(execution)).Error; err != nil {
			return fmt.Errorf("commit fill: execution: %w", err)
		}

		if err := tx.Model(&OrderRecord{}).Where("id = ?", order.ID).Select("*").Omit("created_at").Updates(orderToRecord(order)).Error; err != nil {
			return fmt.Errorf("commit fill: order: %w", err)
		}

		positionRecord := positionToRecord(position)
		result := tx.Model(&PositionRecord{}).Where("id = ?", position.ID).Select("*").Omit("created_at").Updates(positionRecord)
		if result.Error != nil {
			return fmt.Errorf("commit fill: position: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			if err := tx.Create(positionRecord).Error; err != nil {
				return fmt.Errorf("commit fill: create position: %w", err)
			}
		}

		if err := tx.Model(&AccountRecord{}).Where("id = ?", account.ID).Select("*").Omit("created_at").Updates(accountToRecord(account)).Error; err != nil {
			return fmt.Errorf("commit fill: account: %w", err)
		}

		return nil
	})
}
