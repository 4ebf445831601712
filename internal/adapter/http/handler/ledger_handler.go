package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/corebank/internal/adapter/http/dto"
	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/usecase"
)

// LedgerService defines the behavior needed by LedgerHandler.
type LedgerService interface {
	Deposit(ctx context.Context, input usecase.DepositInput) (*domain.Transaction, error)
	Withdraw(ctx context.Context, input usecase.WithdrawInput) (*domain.Transaction, error)
	GetAccountBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	GetTransactionHistory(ctx context.Context, input usecase.HistoryInput) ([]*domain.Transaction, error)
	VerifyAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error)
	CheckConsistency(ctx context.Context) (bool, error)
}

// LedgerHandler handles deposits, withdrawals and ledger queries. Mutating
// endpoints are composed with the idempotency guard: the handler runs the
// operation through guard.Run keyed by the Idempotency-Key header, so a
// redelivered request replays the stored response instead of moving money
// twice.
type LedgerHandler struct {
	ledgerUC LedgerService
	guard    *usecase.IdempotencyGuard
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService, guard *usecase.IdempotencyGuard) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC, guard: guard}
}

// Deposit credits an account.
func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	key := r.Header.Get(headerIdempotencyKey)

	outcome, replayed, err := h.guard.Run(r.Context(), key, "deposit:"+accountID, func(ctx context.Context) (*usecase.Outcome, error) {
		txn, err := h.ledgerUC.Deposit(ctx, usecase.DepositInput{
			AccountID:   accountID,
			Amount:      req.Amount,
			Description: req.Description,
			Reference:   req.Reference,
		})
		if err != nil {
			return nil, err
		}

		body, err := json.Marshal(dto.TransactionFromDomain(txn))
		if err != nil {
			return nil, err
		}

		return &usecase.Outcome{StatusCode: http.StatusCreated, Body: body}, nil
	})
	if err != nil {
		writeError(w, mapDomainError(err), "deposit failed", err.Error())
		return
	}

	if replayed {
		w.Header().Set("Idempotency-Replayed", "true")
	}

	writeRawJSON(w, outcome.StatusCode, outcome.Body)
}

// Withdraw debits an account.
func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	var req dto.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	key := r.Header.Get(headerIdempotencyKey)

	outcome, replayed, err := h.guard.Run(r.Context(), key, "withdraw:"+accountID, func(ctx context.Context) (*usecase.Outcome, error) {
		txn, err := h.ledgerUC.Withdraw(ctx, usecase.WithdrawInput{
			AccountID:   accountID,
			Amount:      req.Amount,
			Description: req.Description,
			Reference:   req.Reference,
		})
		if err != nil {
			return nil, err
		}

		body, err := json.Marshal(dto.TransactionFromDomain(txn))
		if err != nil {
			return nil, err
		}

		return &usecase.Outcome{StatusCode: http.StatusCreated, Body: body}, nil
	})
	if err != nil {
		writeError(w, mapDomainError(err), "withdrawal failed", err.Error())
		return
	}

	if replayed {
		w.Header().Set("Idempotency-Replayed", "true")
	}

	writeRawJSON(w, outcome.StatusCode, outcome.Body)
}

// GetBalance returns the current balance snapshot.
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	balance, err := h.ledgerUC.GetAccountBalance(r.Context(), accountID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get balance", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{AccountID: accountID, Balance: balance})
}

// GetHistory lists transaction rows for an account, newest first.
func (h *LedgerHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	filter := usecase.TransactionFilter{
		Type:   domain.TransactionType(r.URL.Query().Get("type")),
		Limit:  parseIntQuery(r, "limit", 20),
		Offset: parseIntQuery(r, "offset", 0),
	}

	from, err := parseTimeQuery(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid history filter", err.Error())
		return
	}

	to, err := parseTimeQuery(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid history filter", err.Error())
		return
	}

	filter.From = from
	filter.To = to

	txns, err := h.ledgerUC.GetTransactionHistory(r.Context(), usecase.HistoryInput{
		AccountID: accountID,
		Filter:    filter,
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get history", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListTransactionsResponse{
		Transactions: dto.TransactionsFromDomain(txns),
		Total:        int64(len(txns)),
	})
}

// Verify reconciles one account's derived balance against its snapshot.
func (h *LedgerHandler) Verify(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")

	result, err := h.ledgerUC.VerifyAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to verify account", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromResult(result))
}

// Consistency reports whether ledger-wide debits equal credits.
func (h *LedgerHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	consistent, err := h.ledgerUC.CheckConsistency(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "consistency check failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyResponse{Consistent: consistent})
}
