package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
	AccountStatusClosed AccountStatus = "closed"
)

// Account is the ledger's view of an account aggregate. The wider banking
// domain owns the customer side; here it is an id, a currency, a status and
// a versioned balance. Version increases monotonically with every balance
// write and backs optimistic concurrency control.
type Account struct {
	ID            string
	Currency      string
	Status        AccountStatus
	Balance       decimal.Decimal
	Version       int64
	AllowNegative bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsActive reports whether the account accepts ledger mutations.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// ValidateDebit checks that the account can absorb a debit of amount.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	if a.AllowNegative {
		return nil
	}

	if a.Balance.Sub(amount).IsNegative() {
		return NewInsufficientFundsError(a.ID, amount, a.Balance)
	}

	return nil
}

// ApplyDebit returns the balance after a debit. Debits decrease the balance.
func (a *Account) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Sub(amount)
}

// ApplyCredit returns the balance after a credit. Credits increase the balance.
func (a *Account) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(amount)
}
