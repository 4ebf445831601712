package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/usecase"
)

// TransferRepository implements usecase.TransferRepository.
type TransferRepository struct {
	pool *pgxpool.Pool
}

// NewTransferRepository creates a new TransferRepository.
func NewTransferRepository(pool *pgxpool.Pool) *TransferRepository {
	return &TransferRepository{pool: pool}
}

const transferColumns = `id, source_account_id, destination_account_id, amount, currency, status, transfer_type, description, reference, failure_reason, execute_at, reversed_transfer_id, created_at, updated_at`

// Create creates a new transfer.
func (r *TransferRepository) Create(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	q := runner(tx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO transfers (`+transferColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		transfer.ID,
		transfer.SourceAccountID,
		transfer.DestinationID,
		decimalToNumeric(transfer.Amount),
		transfer.Currency,
		string(transfer.Status),
		string(transfer.Type),
		transfer.Description,
		transfer.Reference,
		transfer.FailureReason,
		timePtrToPgTimestamptz(transfer.ExecuteAt),
		transfer.ReversedTransferID,
		timeToPgTimestamptz(transfer.CreatedAt),
		timeToPgTimestamptz(transfer.UpdatedAt),
	)

	return err
}

// GetByID retrieves a transfer by ID.
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*domain.Transfer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+transferColumns+`
		FROM transfers
		WHERE id = $1`, id)

	transfer, err := scanTransfer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransferNotFound
		}

		return nil, err
	}

	return transfer, nil
}

// UpdateStatus moves a transfer between statuses, guarded by the status the
// caller read. Zero rows affected means the transfer moved first: either it
// is gone, or a concurrent writer won the transition.
func (r *TransferRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, from, to domain.TransferStatus, reason string, updatedAt time.Time) error {
	q := runner(tx, r.pool)

	tag, err := q.Exec(ctx, `
		UPDATE transfers
		SET status = $1, failure_reason = $2, updated_at = $3
		WHERE id = $4 AND status = $5`,
		string(to),
		reason,
		timeToPgTimestamptz(updatedAt),
		id,
		string(from),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transfers WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}

		if !exists {
			return domain.ErrTransferNotFound
		}

		return domain.ErrVersionConflict
	}

	return nil
}

// ListDue returns SCHEDULED transfers whose execution time has passed.
func (r *TransferRepository) ListDue(ctx context.Context, before time.Time, limit int) ([]*domain.Transfer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transferColumns+`
		FROM transfers
		WHERE status = $1 AND execute_at IS NOT NULL AND execute_at <= $2
		ORDER BY execute_at
		LIMIT $3`,
		string(domain.TransferStatusScheduled),
		timeToPgTimestamptz(before),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTransfers(rows)
}

// ListByAccount lists transfers touching an account, newest first.
func (r *TransferRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transfer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transferColumns+`
		FROM transfers
		WHERE source_account_id = $1 OR destination_account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTransfers(rows)
}

func collectTransfers(rows pgx.Rows) ([]*domain.Transfer, error) {
	var transfers []*domain.Transfer

	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}

		transfers = append(transfers, transfer)
	}

	return transfers, rows.Err()
}

func scanTransfer(row pgx.Row) (*domain.Transfer, error) {
	var (
		transfer     domain.Transfer
		amount       pgtype.Numeric
		status       string
		transferType string
		executeAt    pgtype.Timestamptz
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)

	err := row.Scan(
		&transfer.ID,
		&transfer.SourceAccountID,
		&transfer.DestinationID,
		&amount,
		&transfer.Currency,
		&status,
		&transferType,
		&transfer.Description,
		&transfer.Reference,
		&transfer.FailureReason,
		&executeAt,
		&transfer.ReversedTransferID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	transfer.Amount = numericToDecimal(amount)
	transfer.Status = domain.TransferStatus(status)
	transfer.Type = domain.TransferType(transferType)
	transfer.ExecuteAt = pgTimestamptzToTimePtr(executeAt)
	transfer.CreatedAt = createdAt.Time
	transfer.UpdatedAt = updatedAt.Time

	return &transfer, nil
}
