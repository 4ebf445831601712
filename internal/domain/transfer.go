package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus is a state in the transfer lifecycle.
type TransferStatus string

const (
	TransferStatusScheduled TransferStatus = "SCHEDULED"
	TransferStatusPending   TransferStatus = "PENDING"
	TransferStatusCompleted TransferStatus = "COMPLETED"
	TransferStatusFailed    TransferStatus = "FAILED"
	TransferStatusCancelled TransferStatus = "CANCELLED"
)

// TransferType distinguishes how a transfer was requested.
type TransferType string

const (
	TransferTypeImmediate TransferType = "immediate"
	TransferTypeScheduled TransferType = "scheduled"
	TransferTypeRecurring TransferType = "recurring"
)

// allowed transitions; terminal states have no outgoing edges.
var transferTransitions = map[TransferStatus][]TransferStatus{
	TransferStatusScheduled: {TransferStatusPending, TransferStatusCancelled},
	TransferStatusPending:   {TransferStatusCompleted, TransferStatusFailed, TransferStatusCancelled},
}

// Transfer is a requested movement of funds between two accounts. Money only
// moves through the balanced journal entry posted when the transfer
// completes; the status field never implies a partial entry exists.
type Transfer struct {
	ID                 string
	SourceAccountID    string
	DestinationID      string
	Amount             decimal.Decimal
	Currency           string
	Status             TransferStatus
	Type               TransferType
	Description        string
	Reference          string
	FailureReason      string
	ExecuteAt          *time.Time
	ReversedTransferID *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Validate checks the structural invariants of a transfer request.
func (t *Transfer) Validate() error {
	if t.SourceAccountID == t.DestinationID {
		return ErrSameAccount
	}

	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	return nil
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (t *Transfer) CanTransitionTo(next TransferStatus) bool {
	for _, allowed := range transferTransitions[t.Status] {
		if allowed == next {
			return true
		}
	}

	return false
}

// TransitionTo moves the transfer to next or fails with
// InvalidStateTransitionError. It mutates only the in-memory aggregate;
// persistence re-checks the previous status on write.
func (t *Transfer) TransitionTo(next TransferStatus) error {
	if !t.CanTransitionTo(next) {
		return &InvalidStateTransitionError{TransferID: t.ID, From: t.Status, To: next}
	}

	t.Status = next

	return nil
}

// IsTerminal reports whether the transfer reached a final state.
func (t *Transfer) IsTerminal() bool {
	switch t.Status {
	case TransferStatusCompleted, TransferStatusFailed, TransferStatusCancelled:
		return true
	}

	return false
}

// RecurringStatus is the lifecycle state of a recurring transfer template.
type RecurringStatus string

const (
	RecurringStatusActive    RecurringStatus = "active"
	RecurringStatusPaused    RecurringStatus = "paused"
	RecurringStatusCancelled RecurringStatus = "cancelled"
)

// Frequency is the firing cadence of a recurring transfer.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Next returns the execution time following after.
func (f Frequency) Next(after time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return after.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return after.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return after.AddDate(0, 1, 0)
	}

	return after.AddDate(0, 0, 1)
}

// RecurringTransfer is a template that produces concrete transfers on a
// schedule until cancelled. Cancelling the template never touches transfers
// it already produced.
type RecurringTransfer struct {
	ID              string
	SourceAccountID string
	DestinationID   string
	Amount          decimal.Decimal
	Currency        string
	Description     string
	Frequency       Frequency
	NextExecutionAt time.Time
	Active          bool
	Status          RecurringStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Due reports whether the template should fire at now.
func (r *RecurringTransfer) Due(now time.Time) bool {
	return r.Active && r.Status == RecurringStatusActive && !r.NextExecutionAt.After(now)
}

// Advance moves NextExecutionAt one frequency step forward.
func (r *RecurringTransfer) Advance() {
	r.NextExecutionAt = r.Frequency.Next(r.NextExecutionAt)
}
