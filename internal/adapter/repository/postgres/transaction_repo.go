package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `id, account_id, txn_type, amount, currency, balance_after, description, reference, created_at`

// Create appends a transaction row. The unique index on
// (account_id, reference, txn_type) turns a replayed business event into
// domain.ErrDuplicateTransaction instead of a second row.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	q := runner(tx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		txn.ID,
		txn.AccountID,
		string(txn.Type),
		decimalToNumeric(txn.Amount),
		txn.Currency,
		decimalToNumeric(txn.BalanceAfter),
		txn.Description,
		txn.Reference,
		timeToPgTimestamptz(txn.CreatedAt),
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateTransaction
	}

	return err
}

// LatestByAccount returns the account's most recent transaction, or nil
// when it has no history yet.
func (r *TransactionRepository) LatestByAccount(ctx context.Context, accountID string) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, accountID)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return txn, nil
}

// ListByAccount lists transaction rows newest first, narrowed by the filter.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, filter usecase.TransactionFilter) ([]*domain.Transaction, error) {
	sql := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account_id = $1`

	args := []any{accountID}

	if filter.Type != "" {
		args = append(args, string(filter.Type))
		sql += ` AND txn_type = $` + strconv.Itoa(len(args))
	}

	if filter.From != nil {
		args = append(args, timeToPgTimestamptz(*filter.From))
		sql += ` AND created_at >= $` + strconv.Itoa(len(args))
	}

	if filter.To != nil {
		args = append(args, timeToPgTimestamptz(*filter.To))
		sql += ` AND created_at <= $` + strconv.Itoa(len(args))
	}

	args = append(args, filter.Limit)
	sql += `
		ORDER BY created_at DESC, id DESC
		LIMIT $` + strconv.Itoa(len(args))

	args = append(args, filter.Offset)
	sql += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.Transaction

	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}

		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		txn          domain.Transaction
		txnType      string
		amount       pgtype.Numeric
		balanceAfter pgtype.Numeric
		createdAt    pgtype.Timestamptz
	)

	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txnType,
		&amount,
		&txn.Currency,
		&balanceAfter,
		&txn.Description,
		&txn.Reference,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Type = domain.TransactionType(txnType)
	txn.Amount = numericToDecimal(amount)
	txn.BalanceAfter = numericToDecimal(balanceAfter)
	txn.CreatedAt = createdAt.Time

	return &txn, nil
}
