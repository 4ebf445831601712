package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/corebank/internal/domain/money"
)

// LineType tags a journal line as a debit or a credit.
type LineType string

const (
	LineTypeDebit  LineType = "DEBIT"
	LineTypeCredit LineType = "CREDIT"
)

// JournalEntry is one atomic bookkeeping event. Entries are immutable once
// posted; corrections are new entries, never edits.
type JournalEntry struct {
	ID          string
	Reference   string
	Description string
	EntryDate   time.Time
	Lines       []JournalLine
	CreatedAt   time.Time
}

// JournalLine is a single debit or credit against one account. It is owned
// exclusively by its entry and never shared.
type JournalLine struct {
	ID          string
	EntryID     string
	AccountID   string
	Type        LineType
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// SignedAmount returns the line amount with the convention applied:
// credits are positive, debits negative.
func (l *JournalLine) SignedAmount() decimal.Decimal {
	if l.Type == LineTypeDebit {
		return l.Amount.Neg()
	}

	return l.Amount
}

// Validate enforces the fundamental correctness invariant of the ledger:
// every line is strictly positive, all lines share one currency, and the
// debit sum equals the credit sum.
func (e *JournalEntry) Validate() error {
	if len(e.Lines) == 0 {
		return ErrEmptyEntry
	}

	currency := e.Lines[0].Currency
	debits := decimal.Zero
	credits := decimal.Zero

	for i := range e.Lines {
		line := &e.Lines[i]

		if line.Amount.LessThanOrEqual(decimal.Zero) {
			return ErrInvalidAmount
		}

		if line.Currency != currency {
			return ErrCurrencyMismatch
		}

		switch line.Type {
		case LineTypeDebit:
			debits = money.Add(&debits, &line.Amount)
		case LineTypeCredit:
			credits = money.Add(&credits, &line.Amount)
		default:
			return ErrInvalidLineType
		}
	}

	if !debits.Equal(credits) {
		return &UnbalancedEntryError{Debits: debits, Credits: credits}
	}

	return nil
}

// Currency returns the currency shared by the entry's lines.
func (e *JournalEntry) Currency() string {
	if len(e.Lines) == 0 {
		return ""
	}

	return e.Lines[0].Currency
}
