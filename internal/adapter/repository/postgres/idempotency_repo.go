package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/corebank/internal/domain"
)

// IdempotencyRepository implements usecase.IdempotencyRepository. The
// unique index on (key, path) makes the claim atomic: exactly one of any
// number of concurrent duplicates inserts the row.
type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// Claim inserts a claim row for (key, path). ON CONFLICT DO NOTHING keeps
// the insert race-free; when the row already exists the current record is
// returned so the caller can tell a finished outcome from one in flight.
func (r *IdempotencyRepository) Claim(ctx context.Context, key, path string, now time.Time) (bool, *domain.IdempotencyRecord, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, path, completed, created_at)
		VALUES ($1, $2, FALSE, $3)
		ON CONFLICT (key, path) DO NOTHING`,
		key, path, timeToPgTimestamptz(now))
	if err != nil {
		return false, nil, err
	}

	if tag.RowsAffected() == 1 {
		return true, nil, nil
	}

	existing, err := r.Get(ctx, key, path)
	if err != nil {
		return false, nil, err
	}

	return false, existing, nil
}

// StoreOutcome attaches the operation result to a claimed key.
func (r *IdempotencyRepository) StoreOutcome(ctx context.Context, key, path string, statusCode int, response []byte) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE idempotency_keys
		SET status_code = $1, response = $2, completed = TRUE
		WHERE key = $3 AND path = $4`,
		statusCode, response, key, path)

	return err
}

// Get retrieves the record for (key, path), or nil when unknown.
func (r *IdempotencyRepository) Get(ctx context.Context, key, path string) (*domain.IdempotencyRecord, error) {
	var (
		record     domain.IdempotencyRecord
		statusCode pgtype.Int4
		createdAt  pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, `
		SELECT key, path, status_code, response, completed, created_at
		FROM idempotency_keys
		WHERE key = $1 AND path = $2`,
		key, path).Scan(&record.Key, &record.Path, &statusCode, &record.Response, &record.Completed, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	record.StatusCode = int(statusCode.Int32)
	record.CreatedAt = createdAt.Time

	return &record, nil
}

// Release drops an unfinished claim so a retry may execute. A completed
// record is never released.
func (r *IdempotencyRepository) Release(ctx context.Context, key, path string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM idempotency_keys
		WHERE key = $1 AND path = $2 AND NOT completed`,
		key, path)

	return err
}

// PurgeExpired removes records created before the cutoff.
func (r *IdempotencyRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM idempotency_keys
		WHERE created_at < $1`,
		timeToPgTimestamptz(before))
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
