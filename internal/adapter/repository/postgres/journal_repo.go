package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/usecase"
)

// JournalRepository implements usecase.JournalRepository. Journal rows are
// append-only; there are no UPDATE or DELETE statements here on purpose.
type JournalRepository struct {
	pool *pgxpool.Pool
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

// CreateEntry persists the entry and all of its lines.
func (r *JournalRepository) CreateEntry(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	q := runner(tx, r.pool)

	_, err := q.Exec(ctx, `
		INSERT INTO journal_entries (id, reference, description, entry_date, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.ID,
		entry.Reference,
		entry.Description,
		timeToPgTimestamptz(entry.EntryDate),
		timeToPgTimestamptz(entry.CreatedAt),
	)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i := range entry.Lines {
		line := &entry.Lines[i]
		batch.Queue(`
			INSERT INTO journal_lines (id, entry_id, account_id, line_type, amount, currency, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			line.ID,
			line.EntryID,
			line.AccountID,
			string(line.Type),
			decimalToNumeric(line.Amount),
			line.Currency,
			line.Description,
		)
	}

	return sendBatch(ctx, q, batch)
}

// GetEntry retrieves a journal entry with its lines.
func (r *JournalRepository) GetEntry(ctx context.Context, id string) (*domain.JournalEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, reference, description, entry_date, created_at
		FROM journal_entries
		WHERE id = $1`, id)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}

		return nil, err
	}

	if err := r.loadLines(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// ListByReference lists journal entries sharing a business reference.
func (r *JournalRepository) ListByReference(ctx context.Context, reference string) ([]*domain.JournalEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, reference, description, entry_date, created_at
		FROM journal_entries
		WHERE reference = $1
		ORDER BY created_at`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.JournalEntry

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if err := r.loadLines(ctx, entry); err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// DeriveBalance recomputes an account balance from its journal lines:
// sum of credits minus sum of debits.
func (r *JournalRepository) DeriveBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var balance pgtype.Numeric

	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN line_type = 'CREDIT' THEN amount ELSE -amount END), 0)
		FROM journal_lines
		WHERE account_id = $1`, accountID).Scan(&balance)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(balance), nil
}

// SumByType returns ledger-wide debit and credit totals.
func (r *JournalRepository) SumByType(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	var debits, credits pgtype.Numeric

	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE line_type = 'DEBIT'), 0),
			COALESCE(SUM(amount) FILTER (WHERE line_type = 'CREDIT'), 0)
		FROM journal_lines`).Scan(&debits, &credits)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(debits), numericToDecimal(credits), nil
}

func (r *JournalRepository) loadLines(ctx context.Context, entry *domain.JournalEntry) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, entry_id, account_id, line_type, amount, currency, description
		FROM journal_lines
		WHERE entry_id = $1
		ORDER BY id`, entry.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line     domain.JournalLine
			lineType string
			amount   pgtype.Numeric
		)

		err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &lineType, &amount, &line.Currency, &line.Description)
		if err != nil {
			return err
		}

		line.Type = domain.LineType(lineType)
		line.Amount = numericToDecimal(amount)
		entry.Lines = append(entry.Lines, line)
	}

	return rows.Err()
}

func scanEntry(row pgx.Row) (*domain.JournalEntry, error) {
	var (
		entry     domain.JournalEntry
		entryDate pgtype.Timestamptz
		createdAt pgtype.Timestamptz
	)

	err := row.Scan(&entry.ID, &entry.Reference, &entry.Description, &entryDate, &createdAt)
	if err != nil {
		return nil, err
	}

	entry.EntryDate = entryDate.Time
	entry.CreatedAt = createdAt.Time

	return &entry, nil
}
