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

// RecurringTransferRepository implements usecase.RecurringTransferRepository.
type RecurringTransferRepository struct {
	pool *pgxpool.Pool
}

// NewRecurringTransferRepository creates a new RecurringTransferRepository.
func NewRecurringTransferRepository(pool *pgxpool.Pool) *RecurringTransferRepository {
	return &RecurringTransferRepository{pool: pool}
}

const recurringColumns = `id, source_account_id, destination_account_id, amount, currency, description, frequency, next_execution_at, active, status, created_at, updated_at`

// Create creates a new recurring transfer template.
func (r *RecurringTransferRepository) Create(ctx context.Context, recurring *domain.RecurringTransfer) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO recurring_transfers (`+recurringColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		recurring.ID,
		recurring.SourceAccountID,
		recurring.DestinationID,
		decimalToNumeric(recurring.Amount),
		recurring.Currency,
		recurring.Description,
		string(recurring.Frequency),
		timeToPgTimestamptz(recurring.NextExecutionAt),
		recurring.Active,
		string(recurring.Status),
		timeToPgTimestamptz(recurring.CreatedAt),
		timeToPgTimestamptz(recurring.UpdatedAt),
	)

	return err
}

// GetByID retrieves a recurring transfer template by ID.
func (r *RecurringTransferRepository) GetByID(ctx context.Context, id string) (*domain.RecurringTransfer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+recurringColumns+`
		FROM recurring_transfers
		WHERE id = $1`, id)

	recurring, err := scanRecurring(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecurringNotFound
		}

		return nil, err
	}

	return recurring, nil
}

// UpdateSchedule advances the template's next execution time.
func (r *RecurringTransferRepository) UpdateSchedule(ctx context.Context, id string, nextExecutionAt, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE recurring_transfers
		SET next_execution_at = $1, updated_at = $2
		WHERE id = $3`,
		timeToPgTimestamptz(nextExecutionAt),
		timeToPgTimestamptz(updatedAt),
		id,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecurringNotFound
	}

	return nil
}

// UpdateStatus updates the template's lifecycle state.
func (r *RecurringTransferRepository) UpdateStatus(ctx context.Context, id string, status domain.RecurringStatus, active bool, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE recurring_transfers
		SET status = $1, active = $2, updated_at = $3
		WHERE id = $4`,
		string(status),
		active,
		timeToPgTimestamptz(updatedAt),
		id,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrRecurringNotFound
	}

	return nil
}

// ListDue returns active templates whose next execution time has passed.
func (r *RecurringTransferRepository) ListDue(ctx context.Context, before time.Time, limit int) ([]*domain.RecurringTransfer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recurringColumns+`
		FROM recurring_transfers
		WHERE active AND status = $1 AND next_execution_at <= $2
		ORDER BY next_execution_at
		LIMIT $3`,
		string(domain.RecurringStatusActive),
		timeToPgTimestamptz(before),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*domain.RecurringTransfer

	for rows.Next() {
		recurring, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}

		templates = append(templates, recurring)
	}

	return templates, rows.Err()
}

func scanRecurring(row pgx.Row) (*domain.RecurringTransfer, error) {
	var (
		recurring domain.RecurringTransfer
		amount    pgtype.Numeric
		frequency string
		status    string
		nextAt    pgtype.Timestamptz
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&recurring.ID,
		&recurring.SourceAccountID,
		&recurring.DestinationID,
		&amount,
		&recurring.Currency,
		&recurring.Description,
		&frequency,
		&nextAt,
		&recurring.Active,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	recurring.Amount = numericToDecimal(amount)
	recurring.Frequency = domain.Frequency(frequency)
	recurring.Status = domain.RecurringStatus(status)
	recurring.NextExecutionAt = nextAt.Time
	recurring.CreatedAt = createdAt.Time
	recurring.UpdatedAt = updatedAt.Time

	return &recurring, nil
}
