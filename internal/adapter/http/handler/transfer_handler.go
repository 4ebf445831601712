package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/corebank/internal/adapter/http/dto"
	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/usecase"
)

// TransferService defines the behavior needed by TransferHandler.
type TransferService interface {
	CreateTransfer(ctx context.Context, input usecase.CreateTransferInput) (*domain.Transfer, error)
	ScheduleTransfer(ctx context.Context, input usecase.ScheduleTransferInput) (*domain.Transfer, error)
	GetTransfer(ctx context.Context, id string) (*domain.Transfer, error)
	ListTransfersByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transfer, error)
	CancelTransfer(ctx context.Context, id, reason string) (*domain.Transfer, error)
	ReverseTransfer(ctx context.Context, originalID, description string) (*domain.Transfer, error)
	CreateRecurringTransfer(ctx context.Context, input usecase.CreateRecurringTransferInput) (*domain.RecurringTransfer, error)
	CancelRecurringTransfer(ctx context.Context, id string) (*domain.RecurringTransfer, error)
}

// TransferHandler handles transfer-related HTTP requests.
type TransferHandler struct {
	transferUC TransferService
	guard      *usecase.IdempotencyGuard
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferUC TransferService, guard *usecase.IdempotencyGuard) *TransferHandler {
	return &TransferHandler{transferUC: transferUC, guard: guard}
}

// Create creates a transfer: immediate by default, scheduled when the
// request carries an execution time.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	key := r.Header.Get(headerIdempotencyKey)

	outcome, replayed, err := h.guard.Run(r.Context(), key, "transfer", func(ctx context.Context) (*usecase.Outcome, error) {
		var (
			transfer *domain.Transfer
			err      error
		)

		if req.ExecuteAt != nil {
			transfer, err = h.transferUC.ScheduleTransfer(ctx, usecase.ScheduleTransferInput{
				CreateTransferInput: req.ToUseCaseInput(),
				ExecuteAt:           *req.ExecuteAt,
			})
		} else {
			transfer, err = h.transferUC.CreateTransfer(ctx, req.ToUseCaseInput())
		}
		if err != nil {
			return nil, err
		}

		body, err := json.Marshal(dto.TransferFromDomain(transfer))
		if err != nil {
			return nil, err
		}

		return &usecase.Outcome{StatusCode: http.StatusCreated, Body: body}, nil
	})
	if err != nil {
		writeError(w, mapDomainError(err), "transfer failed", err.Error())
		return
	}

	if replayed {
		w.Header().Set("Idempotency-Replayed", "true")
	}

	writeRawJSON(w, outcome.StatusCode, outcome.Body)
}

// Get retrieves a transfer by ID.
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	transfer, err := h.transferUC.GetTransfer(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get transfer", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.TransferFromDomain(transfer))
}

// ListByAccount lists transfers touching an account.
func (h *TransferHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	transfers, err := h.transferUC.ListTransfersByAccount(r.Context(), accountID, limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list transfers", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListTransfersResponse{
		Transfers: dto.TransfersFromDomain(transfers),
		Total:     int64(len(transfers)),
	})
}

// Cancel cancels a transfer that has not yet moved money.
func (h *TransferHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.CancelTransferRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	transfer, err := h.transferUC.CancelTransfer(r.Context(), id, req.Reason)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to cancel transfer", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.TransferFromDomain(transfer))
}

// Reverse compensates a completed transfer with an opposite movement.
func (h *TransferHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.ReverseTransferRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	key := r.Header.Get(headerIdempotencyKey)

	outcome, replayed, err := h.guard.Run(r.Context(), key, "reverse:"+id, func(ctx context.Context) (*usecase.Outcome, error) {
		reversal, err := h.transferUC.ReverseTransfer(ctx, id, req.Description)
		if err != nil {
			return nil, err
		}

		body, err := json.Marshal(dto.TransferFromDomain(reversal))
		if err != nil {
			return nil, err
		}

		return &usecase.Outcome{StatusCode: http.StatusCreated, Body: body}, nil
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reverse transfer", err.Error())
		return
	}

	if replayed {
		w.Header().Set("Idempotency-Replayed", "true")
	}

	writeRawJSON(w, outcome.StatusCode, outcome.Body)
}

// CreateRecurring creates a recurring transfer template.
func (h *TransferHandler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRecurringTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	switch domain.Frequency(req.Frequency) {
	case domain.FrequencyDaily, domain.FrequencyWeekly, domain.FrequencyMonthly:
	default:
		writeError(w, http.StatusBadRequest, "invalid frequency", req.Frequency)
		return
	}

	recurring, err := h.transferUC.CreateRecurringTransfer(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create recurring transfer", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.RecurringFromDomain(recurring))
}

// CancelRecurring cancels a recurring transfer template.
func (h *TransferHandler) CancelRecurring(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	recurring, err := h.transferUC.CancelRecurringTransfer(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to cancel recurring transfer", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.RecurringFromDomain(recurring))
}
