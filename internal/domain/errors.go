package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Account errors
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountNotActive = errors.New("account is not active")

	// Journal errors
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidLineType      = errors.New("line type must be DEBIT or CREDIT")
	ErrCurrencyMismatch     = errors.New("all lines must share one currency")
	ErrEmptyEntry           = errors.New("journal entry has no lines")
	ErrEntryNotFound        = errors.New("journal entry not found")
	ErrDuplicateTransaction = errors.New("transaction already recorded for this reference")

	// Transfer errors
	ErrSameAccount       = errors.New("cannot transfer to same account")
	ErrTransferNotFound  = errors.New("transfer not found")
	ErrRecurringNotFound = errors.New("recurring transfer not found")

	// Concurrency errors
	ErrVersionConflict = errors.New("aggregate version conflict")

	// Idempotency errors
	ErrMissingIdempotencyKey = errors.New("idempotency key is required")
	ErrConcurrentDuplicate   = errors.New("duplicate request still in flight")
)

// InsufficientFundsError reports a debit that would overdraw an account.
// It carries enough detail for the caller to act without re-reading state.
type InsufficientFundsError struct {
	AccountID string
	Requested decimal.Decimal
	Available decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on account %s: requested %s, available %s, short %s",
		e.AccountID, e.Requested, e.Available, e.Shortfall)
}

// NewInsufficientFundsError builds the error with the shortfall derived from
// requested and available.
func NewInsufficientFundsError(accountID string, requested, available decimal.Decimal) *InsufficientFundsError {
	return &InsufficientFundsError{
		AccountID: accountID,
		Requested: requested,
		Available: available,
		Shortfall: requested.Sub(available),
	}
}

// UnbalancedEntryError reports a journal entry whose debit and credit sums
// disagree.
type UnbalancedEntryError struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("unbalanced journal entry: debits %s, credits %s", e.Debits, e.Credits)
}

// InvalidStateTransitionError reports a transfer status change the state
// machine does not permit.
type InvalidStateTransitionError struct {
	TransferID string
	From       TransferStatus
	To         TransferStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("transfer %s: invalid transition %s -> %s", e.TransferID, e.From, e.To)
}

// ConcurrencyConflictError is surfaced when optimistic retries exhaust.
// Callers should map it to a retryable signal, not a fatal failure.
type ConcurrencyConflictError struct {
	Attempts int
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("version conflict persisted after %d attempts", e.Attempts)
}

func (e *ConcurrencyConflictError) Unwrap() error {
	return ErrVersionConflict
}
