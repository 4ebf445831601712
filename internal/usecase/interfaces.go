package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/corebank/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByIDTx reads an account inside a transaction so the balance and
	// version seen are the ones the subsequent UpdateBalance is checked
	// against.
	GetByIDTx(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	// UpdateBalance writes balance and bumps version, guarded by
	// expectedVersion. Returns domain.ErrVersionConflict when the aggregate
	// moved underneath the caller.
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance decimal.Decimal, expectedVersion int64, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// JournalRepository defines data access for journal entries and lines.
type JournalRepository interface {
	// CreateEntry persists the entry and all of its lines.
	CreateEntry(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error
	GetEntry(ctx context.Context, id string) (*domain.JournalEntry, error)
	ListByReference(ctx context.Context, reference string) ([]*domain.JournalEntry, error)
	// DeriveBalance sums credits minus debits across all lines for an
	// account. The journal is the source of truth; transaction snapshots
	// are a cache of this value.
	DeriveBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	// SumByType returns ledger-wide debit and credit totals.
	SumByType(ctx context.Context) (debits, credits decimal.Decimal, err error)
}

// TransactionFilter narrows a transaction history query.
type TransactionFilter struct {
	Type   domain.TransactionType
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// TransactionRepository defines data access for per-account transaction rows.
type TransactionRepository interface {
	// Create appends a transaction row. Returns
	// domain.ErrDuplicateTransaction when (account, reference, type)
	// already exists.
	Create(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	// LatestByAccount returns the most recent transaction, or nil when the
	// account has no history.
	LatestByAccount(ctx context.Context, accountID string) (*domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID string, filter TransactionFilter) ([]*domain.Transaction, error)
}

// TransferRepository defines data access for transfers.
type TransferRepository interface {
	Create(ctx context.Context, tx Transaction, transfer *domain.Transfer) error
	GetByID(ctx context.Context, id string) (*domain.Transfer, error)
	// UpdateStatus moves a transfer from one status to another. The write
	// is guarded on the previous status; domain.ErrVersionConflict means
	// the transfer moved first (e.g. a concurrent cancel).
	UpdateStatus(ctx context.Context, tx Transaction, id string, from, to domain.TransferStatus, reason string, updatedAt time.Time) error
	// ListDue returns SCHEDULED transfers whose execution time has passed.
	ListDue(ctx context.Context, before time.Time, limit int) ([]*domain.Transfer, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transfer, error)
}

// RecurringTransferRepository defines data access for recurring templates.
type RecurringTransferRepository interface {
	Create(ctx context.Context, recurring *domain.RecurringTransfer) error
	GetByID(ctx context.Context, id string) (*domain.RecurringTransfer, error)
	UpdateSchedule(ctx context.Context, id string, nextExecutionAt, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, id string, status domain.RecurringStatus, active bool, updatedAt time.Time) error
	ListDue(ctx context.Context, before time.Time, limit int) ([]*domain.RecurringTransfer, error)
}

// IdempotencyRepository handles idempotency key storage. The claim must be
// a single atomic operation at the storage layer (unique constraint on
// key+path) so two concurrent duplicates cannot both observe first-seen.
type IdempotencyRepository interface {
	// Claim atomically checks-and-inserts a key record. Returns
	// claimed=true exactly once per (key, path); afterwards it returns the
	// existing record, whose Completed flag tells in-flight apart from
	// known-outcome.
	Claim(ctx context.Context, key, path string, now time.Time) (claimed bool, existing *domain.IdempotencyRecord, err error)
	// StoreOutcome attaches the result of the first successful execution.
	StoreOutcome(ctx context.Context, key, path string, statusCode int, response []byte) error
	Get(ctx context.Context, key, path string) (*domain.IdempotencyRecord, error)
	// Release drops an unfinished claim so a later retry may execute.
	Release(ctx context.Context, key, path string) error
	// PurgeExpired removes records created before the cutoff.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation that failed with a transient storage
// error, such as a deadlock or serialization failure.
type Retrier interface {
	Retry(ctx context.Context, op func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MirrorPublisher delivers a command to the external ledger mirror.
type MirrorPublisher interface {
	Publish(ctx context.Context, cmd domain.MirrorCommand) error
}

// Notifier enqueues mirror commands without blocking the caller.
type Notifier interface {
	Enqueue(cmd domain.MirrorCommand)
}
