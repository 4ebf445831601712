package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID            string          `json:"id"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	Balance       decimal.Decimal `json:"balance"`
	Version       int64           `json:"version"`
	AllowNegative bool            `json:"allow_negative"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:            a.ID,
		Currency:      a.Currency,
		Status:        string(a.Status),
		Balance:       a.Balance,
		Version:       a.Version,
		AllowNegative: a.AllowNegative,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse wraps a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// BalanceResponse represents an account balance.
type BalanceResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

// TransactionResponse represents a transaction row in API responses.
type TransactionResponse struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Description  string          `json:"description,omitempty"`
	Reference    string          `json:"reference"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:           t.ID,
		AccountID:    t.AccountID,
		Type:         string(t.Type),
		Amount:       t.Amount,
		Currency:     t.Currency,
		BalanceAfter: t.BalanceAfter,
		Description:  t.Description,
		Reference:    t.Reference,
		CreatedAt:    t.CreatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// ListTransactionsResponse wraps a page of transactions.
type ListTransactionsResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Total        int64                  `json:"total"`
}

// TransferResponse represents a transfer in API responses.
type TransferResponse struct {
	ID                 string          `json:"id"`
	SourceAccountID    string          `json:"source_account_id"`
	DestinationID      string          `json:"destination_account_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Status             string          `json:"status"`
	Type               string          `json:"type"`
	Description        string          `json:"description,omitempty"`
	Reference          string          `json:"reference"`
	FailureReason      string          `json:"failure_reason,omitempty"`
	ExecuteAt          *time.Time      `json:"execute_at,omitempty"`
	ReversedTransferID *string         `json:"reversed_transfer_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TransferFromDomain converts a domain transfer to a response.
func TransferFromDomain(t *domain.Transfer) *TransferResponse {
	return &TransferResponse{
		ID:                 t.ID,
		SourceAccountID:    t.SourceAccountID,
		DestinationID:      t.DestinationID,
		Amount:             t.Amount,
		Currency:           t.Currency,
		Status:             string(t.Status),
		Type:               string(t.Type),
		Description:        t.Description,
		Reference:          t.Reference,
		FailureReason:      t.FailureReason,
		ExecuteAt:          t.ExecuteAt,
		ReversedTransferID: t.ReversedTransferID,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

// TransfersFromDomain converts domain transfers to responses.
func TransfersFromDomain(transfers []*domain.Transfer) []*TransferResponse {
	result := make([]*TransferResponse, len(transfers))
	for i, t := range transfers {
		result[i] = TransferFromDomain(t)
	}
	return result
}

// ListTransfersResponse wraps a page of transfers.
type ListTransfersResponse struct {
	Transfers []*TransferResponse `json:"transfers"`
	Total     int64               `json:"total"`
}

// RecurringTransferResponse represents a recurring template in API
// responses.
type RecurringTransferResponse struct {
	ID              string          `json:"id"`
	SourceAccountID string          `json:"source_account_id"`
	DestinationID   string          `json:"destination_account_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description,omitempty"`
	Frequency       string          `json:"frequency"`
	NextExecutionAt time.Time       `json:"next_execution_at"`
	Active          bool            `json:"active"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// RecurringFromDomain converts a domain recurring template to a response.
func RecurringFromDomain(r *domain.RecurringTransfer) *RecurringTransferResponse {
	return &RecurringTransferResponse{
		ID:              r.ID,
		SourceAccountID: r.SourceAccountID,
		DestinationID:   r.DestinationID,
		Amount:          r.Amount,
		Currency:        r.Currency,
		Description:     r.Description,
		Frequency:       string(r.Frequency),
		NextExecutionAt: r.NextExecutionAt,
		Active:          r.Active,
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// ReconciliationResponse represents a per-account reconciliation result.
type ReconciliationResponse struct {
	AccountID       string          `json:"account_id"`
	DerivedBalance  decimal.Decimal `json:"derived_balance"`
	SnapshotBalance decimal.Decimal `json:"snapshot_balance"`
	Consistent      bool            `json:"consistent"`
	CheckedAt       time.Time       `json:"checked_at"`
}

// ReconciliationFromResult converts a reconciliation result to a response.
func ReconciliationFromResult(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountID:       r.AccountID,
		DerivedBalance:  r.DerivedBalance,
		SnapshotBalance: r.SnapshotBalance,
		Consistent:      r.Consistent,
		CheckedAt:       r.CheckedAt,
	}
}

// ConsistencyResponse reports whether ledger-wide debits equal credits.
type ConsistencyResponse struct {
	Consistent bool `json:"consistent"`
}
