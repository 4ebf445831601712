package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	Currency      string `json:"currency"`
	AllowNegative bool   `json:"allow_negative"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Currency:      r.Currency,
		AllowNegative: r.AllowNegative,
	}
}

// DepositRequest represents a request to deposit into an account.
type DepositRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Reference   string          `json:"reference,omitempty"`
}

// WithdrawRequest represents a request to withdraw from an account.
type WithdrawRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Reference   string          `json:"reference,omitempty"`
}

// CreateTransferRequest represents a request to create a transfer.
type CreateTransferRequest struct {
	SourceAccountID string          `json:"source_account_id"`
	DestinationID   string          `json:"destination_account_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description,omitempty"`
	Reference       string          `json:"reference,omitempty"`
	// ExecuteAt schedules the transfer for later execution when set.
	ExecuteAt *time.Time `json:"execute_at,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransferRequest) ToUseCaseInput() usecase.CreateTransferInput {
	return usecase.CreateTransferInput{
		SourceAccountID: r.SourceAccountID,
		DestinationID:   r.DestinationID,
		Amount:          r.Amount,
		Currency:        r.Currency,
		Description:     r.Description,
		Reference:       r.Reference,
	}
}

// CancelTransferRequest represents a request to cancel a transfer.
type CancelTransferRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ReverseTransferRequest represents a request to reverse a transfer.
type ReverseTransferRequest struct {
	Description string `json:"description,omitempty"`
}

// CreateRecurringTransferRequest represents a request to create a
// recurring transfer template.
type CreateRecurringTransferRequest struct {
	SourceAccountID string          `json:"source_account_id"`
	DestinationID   string          `json:"destination_account_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description,omitempty"`
	Frequency       string          `json:"frequency"`
	StartAt         *time.Time      `json:"start_at,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateRecurringTransferRequest) ToUseCaseInput() usecase.CreateRecurringTransferInput {
	input := usecase.CreateRecurringTransferInput{
		SourceAccountID: r.SourceAccountID,
		DestinationID:   r.DestinationID,
		Amount:          r.Amount,
		Currency:        r.Currency,
		Description:     r.Description,
		Frequency:       domain.Frequency(r.Frequency),
	}
	if r.StartAt != nil {
		input.StartAt = *r.StartAt
	}

	return input
}
