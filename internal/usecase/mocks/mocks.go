// Package mocks provides in-memory implementations of the usecase
// repository interfaces. Every mock keeps a map-backed default behavior and
// exposes func fields to override individual methods per test.
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/usecase"
)

// MockTransactionManager serializes "transactions" with a mutex so
// concurrent tests observe the same isolation the real pool provides.
type MockTransactionManager struct {
	mu sync.Mutex

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	return &MockTx{release: &m.mu}, nil
}

// MockTx releases the manager's mutex exactly once on Commit or Rollback.
type MockTx struct {
	release *sync.Mutex
	once    sync.Once
}

func (t *MockTx) Commit(ctx context.Context) error {
	t.once.Do(func() { t.release.Unlock() })
	return nil
}

func (t *MockTx) Rollback(ctx context.Context) error {
	t.once.Do(func() { t.release.Unlock() })
	return nil
}

// MockIDGenerator generates sequential IDs.
type MockIDGenerator struct {
	mu      sync.Mutex
	counter int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("id-%06d", m.counter)
}

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc        func(ctx context.Context, account *domain.Account) error
	GetByIDFunc       func(ctx context.Context, id string) (*domain.Account, error)
	GetByIDTxFunc     func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error)
	UpdateBalanceFunc func(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, expectedVersion int64, updatedAt time.Time) error
	ListFunc          func(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{accounts: make(map[string]*domain.Account)}
}

// Seed inserts an account directly into the store.
func (m *MockAccountRepository) Seed(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *account
	m.accounts[account.ID] = &clone
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.Seed(account)
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *account
	return &clone, nil
}

func (m *MockAccountRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	if m.GetByIDTxFunc != nil {
		return m.GetByIDTxFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, expectedVersion int64, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, id, balance, expectedVersion, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if account.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	account.Balance = balance
	account.Version++
	account.UpdatedAt = updatedAt
	return nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	accounts := make([]*domain.Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		clone := *account
		accounts = append(accounts, &clone)
	}
	return accounts, nil
}

// MockJournalRepository is a mock implementation of JournalRepository.
type MockJournalRepository struct {
	mu      sync.RWMutex
	entries []*domain.JournalEntry

	CreateEntryFunc func(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error
}

func NewMockJournalRepository() *MockJournalRepository {
	return &MockJournalRepository{}
}

func (m *MockJournalRepository) CreateEntry(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	if m.CreateEntryFunc != nil {
		return m.CreateEntryFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *entry
	clone.Lines = append([]domain.JournalLine(nil), entry.Lines...)
	m.entries = append(m.entries, &clone)
	return nil
}

func (m *MockJournalRepository) GetEntry(ctx context.Context, id string) (*domain.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, entry := range m.entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockJournalRepository) ListByReference(ctx context.Context, reference string) ([]*domain.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.JournalEntry
	for _, entry := range m.entries {
		if entry.Reference == reference {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Entries returns everything posted so far.
func (m *MockJournalRepository) Entries() []*domain.JournalEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.JournalEntry(nil), m.entries...)
}

func (m *MockJournalRepository) DeriveBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	balance := decimal.Zero
	for _, entry := range m.entries {
		for i := range entry.Lines {
			line := &entry.Lines[i]
			if line.AccountID == accountID {
				balance = balance.Add(line.SignedAmount())
			}
		}
	}
	return balance, nil
}

func (m *MockJournalRepository) SumByType(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	debits, credits := decimal.Zero, decimal.Zero
	for _, entry := range m.entries {
		for i := range entry.Lines {
			line := &entry.Lines[i]
			if line.Type == domain.LineTypeDebit {
				debits = debits.Add(line.Amount)
			} else {
				credits = credits.Add(line.Amount)
			}
		}
	}
	return debits, credits, nil
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mu   sync.RWMutex
	txns []*domain.Transaction
	seen map[string]bool

	CreateFunc func(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{seen: make(map[string]bool)}
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := txn.AccountID + "|" + txn.Reference + "|" + string(txn.Type)
	if m.seen[key] {
		return domain.ErrDuplicateTransaction
	}
	m.seen[key] = true
	clone := *txn
	m.txns = append(m.txns, &clone)
	return nil
}

func (m *MockTransactionRepository) LatestByAccount(ctx context.Context, accountID string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.txns) - 1; i >= 0; i-- {
		if m.txns[i].AccountID == accountID {
			clone := *m.txns[i]
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *MockTransactionRepository) ListByAccount(ctx context.Context, accountID string, filter usecase.TransactionFilter) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*domain.Transaction
	for i := len(m.txns) - 1; i >= 0; i-- {
		txn := m.txns[i]
		if txn.AccountID != accountID {
			continue
		}
		if filter.Type != "" && txn.Type != filter.Type {
			continue
		}
		if filter.From != nil && txn.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && txn.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, txn)
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Transactions returns every row appended so far.
func (m *MockTransactionRepository) Transactions() []*domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.Transaction(nil), m.txns...)
}

// MockTransferRepository is a mock implementation of TransferRepository.
type MockTransferRepository struct {
	mu        sync.RWMutex
	transfers map[string]*domain.Transfer

	CreateFunc       func(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error
	UpdateStatusFunc func(ctx context.Context, tx usecase.Transaction, id string, from, to domain.TransferStatus, reason string, updatedAt time.Time) error
}

func NewMockTransferRepository() *MockTransferRepository {
	return &MockTransferRepository{transfers: make(map[string]*domain.Transfer)}
}

func (m *MockTransferRepository) Create(ctx context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, transfer)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *transfer
	m.transfers[transfer.ID] = &clone
	return nil
}

func (m *MockTransferRepository) GetByID(ctx context.Context, id string) (*domain.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	transfer, ok := m.transfers[id]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	clone := *transfer
	return &clone, nil
}

func (m *MockTransferRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, from, to domain.TransferStatus, reason string, updatedAt time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, from, to, reason, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	transfer, ok := m.transfers[id]
	if !ok {
		return domain.ErrTransferNotFound
	}
	if transfer.Status != from {
		return domain.ErrVersionConflict
	}
	transfer.Status = to
	transfer.FailureReason = reason
	transfer.UpdatedAt = updatedAt
	return nil
}

func (m *MockTransferRepository) ListDue(ctx context.Context, before time.Time, limit int) ([]*domain.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var due []*domain.Transfer
	for _, transfer := range m.transfers {
		if transfer.Status != domain.TransferStatusScheduled {
			continue
		}
		if transfer.ExecuteAt == nil || transfer.ExecuteAt.After(before) {
			continue
		}
		clone := *transfer
		due = append(due, &clone)
		if limit > 0 && len(due) >= limit {
			break
		}
	}
	return due, nil
}

func (m *MockTransferRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*domain.Transfer
	for _, transfer := range m.transfers {
		if transfer.SourceAccountID == accountID || transfer.DestinationID == accountID {
			clone := *transfer
			matched = append(matched, &clone)
		}
	}
	return matched, nil
}

// MockRecurringTransferRepository is a mock implementation of
// RecurringTransferRepository.
type MockRecurringTransferRepository struct {
	mu        sync.RWMutex
	templates map[string]*domain.RecurringTransfer
}

func NewMockRecurringTransferRepository() *MockRecurringTransferRepository {
	return &MockRecurringTransferRepository{templates: make(map[string]*domain.RecurringTransfer)}
}

func (m *MockRecurringTransferRepository) Create(ctx context.Context, recurring *domain.RecurringTransfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *recurring
	m.templates[recurring.ID] = &clone
	return nil
}

func (m *MockRecurringTransferRepository) GetByID(ctx context.Context, id string) (*domain.RecurringTransfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recurring, ok := m.templates[id]
	if !ok {
		return nil, domain.ErrRecurringNotFound
	}
	clone := *recurring
	return &clone, nil
}

func (m *MockRecurringTransferRepository) UpdateSchedule(ctx context.Context, id string, nextExecutionAt, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recurring, ok := m.templates[id]
	if !ok {
		return domain.ErrRecurringNotFound
	}
	recurring.NextExecutionAt = nextExecutionAt
	recurring.UpdatedAt = updatedAt
	return nil
}

func (m *MockRecurringTransferRepository) UpdateStatus(ctx context.Context, id string, status domain.RecurringStatus, active bool, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recurring, ok := m.templates[id]
	if !ok {
		return domain.ErrRecurringNotFound
	}
	recurring.Status = status
	recurring.Active = active
	recurring.UpdatedAt = updatedAt
	return nil
}

func (m *MockRecurringTransferRepository) ListDue(ctx context.Context, before time.Time, limit int) ([]*domain.RecurringTransfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var due []*domain.RecurringTransfer
	for _, recurring := range m.templates {
		if !recurring.Due(before) {
			continue
		}
		clone := *recurring
		due = append(due, &clone)
		if limit > 0 && len(due) >= limit {
			break
		}
	}
	return due, nil
}

// MockIdempotencyRepository is a mock implementation of
// IdempotencyRepository with an atomic in-memory claim.
type MockIdempotencyRepository struct {
	mu      sync.Mutex
	records map[string]*domain.IdempotencyRecord

	ClaimFunc        func(ctx context.Context, key, path string, now time.Time) (bool, *domain.IdempotencyRecord, error)
	PurgeExpiredFunc func(ctx context.Context, before time.Time) (int64, error)
}

func NewMockIdempotencyRepository() *MockIdempotencyRepository {
	return &MockIdempotencyRepository{records: make(map[string]*domain.IdempotencyRecord)}
}

func idemKey(key, path string) string {
	return key + "|" + path
}

func (m *MockIdempotencyRepository) Claim(ctx context.Context, key, path string, now time.Time) (bool, *domain.IdempotencyRecord, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, key, path, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.records[idemKey(key, path)]; ok {
		clone := *existing
		return false, &clone, nil
	}
	m.records[idemKey(key, path)] = &domain.IdempotencyRecord{Key: key, Path: path, CreatedAt: now}
	return true, nil, nil
}

func (m *MockIdempotencyRepository) StoreOutcome(ctx context.Context, key, path string, statusCode int, response []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[idemKey(key, path)]
	if !ok {
		return fmt.Errorf("idempotency record not found: %s %s", key, path)
	}
	record.StatusCode = statusCode
	record.Response = response
	record.Completed = true
	return nil
}

func (m *MockIdempotencyRepository) Get(ctx context.Context, key, path string) (*domain.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[idemKey(key, path)]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (m *MockIdempotencyRepository) Release(ctx context.Context, key, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, idemKey(key, path))
	return nil
}

func (m *MockIdempotencyRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	if m.PurgeExpiredFunc != nil {
		return m.PurgeExpiredFunc(ctx, before)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var purged int64
	for k, record := range m.records {
		if record.CreatedAt.Before(before) {
			delete(m.records, k)
			purged++
		}
	}
	return purged, nil
}

// MockCache is a mock implementation of Cache. TTLs are ignored.
type MockCache struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{values: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, fmt.Errorf("cache miss: %s", key)
	}
	return value, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
