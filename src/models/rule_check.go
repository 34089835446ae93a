package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Names of the pre-trade risk checks. All five always run; the order is
// accepted only if all five pass.
const (
	CheckBalance       = "balance"
	CheckPositionLimit = "position_limit"
	CheckDrawdown      = "drawdown"
	CheckDailyLoss     = "daily_loss"
	CheckMargin        = "margin"
)

type RuleCheckResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// RuleCheckRecord is a write-once audit snapshot of validator output taken
// at submission time. It is never used for control flow after creation.
type RuleCheckRecord struct {
	ID        uuid.UUID         `json:"id"`
	OrderID   uuid.UUID         `json:"order_id"`
	AccountID uuid.UUID         `json:"account_id"`
	Passed    bool              `json:"passed"`
	Results   []RuleCheckResult `json:"results"`
	CreatedAt time.Time         `json:"created_at"`
}

func NewRuleCheckRecord(orderID, accountID uuid.UUID, results []RuleCheckResult, createdAt time.Time) *RuleCheckRecord {
	passed := true
	for _, r := range results {
		if !r.Passed {
			passed = false
		}
	}

	return &RuleCheckRecord{
		ID:        uuid.New(),
		OrderID:   orderID,
		AccountID: accountID,
		Passed:    passed,
		Results:   results,
		CreatedAt: createdAt,
	}
}

// FailureReasons collects the messages of every failed check.
func (r *RuleCheckRecord) FailureReasons() []string {
	var reasons []string
	for _, result := range r.Results {
		if !result.Passed {
			reasons = append(reasons, result.Message)
		}
	}

	return reasons
}

// JoinedFailureReasons is the human-readable rejection string persisted on
// the order.
func (r *RuleCheckRecord) JoinedFailureReasons() string {
	return strings.Join(r.FailureReasons(), "; ")
}
