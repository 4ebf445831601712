package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a per-account transaction row.
type TransactionType string

const (
	TransactionTypeCredit       TransactionType = "credit"
	TransactionTypeDebit        TransactionType = "debit"
	TransactionTypeTransfer     TransactionType = "transfer"
	TransactionTypeFee          TransactionType = "fee"
	TransactionTypeInterest     TransactionType = "interest"
	TransactionTypeCompensation TransactionType = "compensation"
)

// Transaction is the per-account projection of one journal line, carrying a
// denormalized balance snapshot for fast history reads. Rows are created
// once and never mutated or deleted; the journal lines remain the source of
// truth and BalanceAfter is a materialized view over them.
//
// (AccountID, Reference, Type) is unique, so the same business event can
// never be applied twice to an account.
type Transaction struct {
	ID           string
	AccountID    string
	Type         TransactionType
	Amount       decimal.Decimal
	Currency     string
	BalanceAfter decimal.Decimal
	Description  string
	Reference    string
	CreatedAt    time.Time
}
