package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// Retryable PostgreSQL error codes. Deadlocks and serialization failures
// mean the transaction lost a race, not that the operation is invalid.
const (
	pgCodeDeadlockDetected     = "40P01"
	pgCodeSerializationFailure = "40001"
)

// Retrier re-runs database operations that fail with a transient
// concurrency error, backing off exponentially between attempts.
// It implements usecase.Retrier.
type Retrier struct {
	maxAttempts     int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsed      time.Duration
	logger          zerolog.Logger
}

// NewRetrier creates a Retrier with defaults suited to short OLTP
// transactions: up to 3 extra attempts within a 10 second window.
func NewRetrier(logger zerolog.Logger) *Retrier {
	return &Retrier{
		maxAttempts:     3,
		initialInterval: 50 * time.Millisecond,
		maxInterval:     time.Second,
		maxElapsed:      10 * time.Second,
		logger:          logger,
	}
}

// Retry runs op, re-running it on deadlock or serialization failure until
// it succeeds, the attempt budget runs out, or ctx is cancelled. Any other
// error stops the loop immediately.
func (r *Retrier) Retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = r.maxElapsed

	attempt := 0

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}

		if !isTransientPgError(err) {
			return backoff.Permanent(err)
		}

		attempt++
		if attempt > r.maxAttempts {
			return backoff.Permanent(err)
		}

		r.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Msg("transient database error, retrying")

		return err
	}, backoff.WithContext(b, ctx))
}

func isTransientPgError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case pgCodeDeadlockDetected, pgCodeSerializationFailure:
		return true
	}

	return false
}
