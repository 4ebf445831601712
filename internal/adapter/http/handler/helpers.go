package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/iho/corebank/internal/adapter/http/dto"
	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/usecase"
)

// headerIdempotencyKey carries the client's dedup key for mutating requests.
const headerIdempotencyKey = "Idempotency-Key"

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeRawJSON writes an already-encoded JSON body, as stored by the
// idempotency guard.
func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	var (
		insufficientErr *domain.InsufficientFundsError
		transitionErr   *domain.InvalidStateTransitionError
	)

	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransferNotFound),
		errors.Is(err, domain.ErrRecurringNotFound),
		errors.Is(err, domain.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrCurrencyMismatch),
		errors.Is(err, domain.ErrEmptyEntry),
		errors.Is(err, domain.ErrInvalidLineType),
		errors.Is(err, domain.ErrMissingIdempotencyKey):
		return http.StatusBadRequest
	case errors.As(err, &insufficientErr),
		errors.Is(err, domain.ErrAccountNotActive):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDuplicateTransaction),
		errors.Is(err, domain.ErrConcurrentDuplicate),
		errors.Is(err, usecase.ErrTransferNotReversible),
		errors.As(err, &transitionErr):
		return http.StatusConflict
	case errors.Is(err, domain.ErrVersionConflict):
		// Includes exhausted optimistic retries; the client may retry.
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// parseTimeQuery parses an RFC 3339 query parameter. Absent means nil;
// a malformed value is an error so bad filters fail loudly instead of
// silently returning the unfiltered history.
func parseTimeQuery(r *http.Request, key string) (*time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil, nil
	}

	ts, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, fmt.Errorf("%s must be RFC 3339: %w", key, err)
	}

	return &ts, nil
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
