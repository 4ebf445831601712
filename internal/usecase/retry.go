package usecase

import (
	"context"
	"errors"

	"github.com/iho/corebank/internal/domain"
)

// WithOptimisticRetry executes op and, when the underlying store reports a
// version conflict, re-runs it up to maxAttempts times. Each run of op is
// expected to re-read the aggregates it mutates, so a retry always works
// from fresh state. Any error other than domain.ErrVersionConflict
// propagates immediately; exhausting the attempts surfaces
// domain.ConcurrencyConflictError, which boundaries map to a retryable
// signal rather than a fatal failure.
func WithOptimisticRetry(ctx context.Context, maxAttempts int, op func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxOptimisticAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return &domain.ConcurrencyConflictError{Attempts: maxAttempts}
}
