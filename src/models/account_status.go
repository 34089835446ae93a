package models

import "fmt"

type AccountStatus string

const (
	AccountStatusPending   AccountStatus = "pending"
	AccountStatusActive    AccountStatus = "active"
	AccountStatusPassed    AccountStatus = "passed"
	AccountStatusFunded    AccountStatus = "funded"
	AccountStatusFailed    AccountStatus = "failed"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusExpired   AccountStatus = "expired"
)

func (s AccountStatus) Validate() error {
	switch s {
	case AccountStatusPending, AccountStatusActive, AccountStatusPassed, AccountStatusFunded, AccountStatusFailed, AccountStatusSuspended, AccountStatusExpired:
		return nil
	default:
		return fmt.Errorf("invalid account status: %s", s)
	}
}

// IsTradingAllowed reports whether new orders may be submitted. A passed
// account stops trading until it is converted to funded.
func (s AccountStatus) IsTradingAllowed() bool {
	return s == AccountStatusActive || s == AccountStatusFunded
}

// IsTerminal reports whether the account can never trade again.
func (s AccountStatus) IsTerminal() bool {
	return s == AccountStatusFailed || s == AccountStatusExpired
}
