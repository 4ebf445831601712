package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/domain/money"
	"github.com/iho/corebank/internal/infrastructure/metrics"
)

// LedgerUseCase is the append-only recording of balanced financial events
// and the derivation of account balances. Every money movement in the
// system, including deposits, withdrawals and transfers, ends up as one
// balanced journal entry posted through here.
type LedgerUseCase struct {
	txManager     TransactionManager
	accountRepo   AccountRepository
	journalRepo   JournalRepository
	txnRepo       TransactionRepository
	idGen         IDGenerator
	cache         Cache
	notifier      Notifier
	retrier       Retrier
	metrics       *metrics.Metrics
	cashAccountID string
	maxAttempts   int
}

// NewLedgerUseCase creates a new LedgerUseCase. cashAccountID names the
// system settlement account that balances deposits and withdrawals; it must
// allow a negative balance.
func NewLedgerUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	journalRepo JournalRepository,
	txnRepo TransactionRepository,
	idGen IDGenerator,
	cashAccountID string,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:     txManager,
		accountRepo:   accountRepo,
		journalRepo:   journalRepo,
		txnRepo:       txnRepo,
		idGen:         idGen,
		cashAccountID: cashAccountID,
		maxAttempts:   DefaultMaxOptimisticAttempts,
	}
}

// WithMaxAttempts overrides the optimistic retry budget. attempts <= 0
// keeps the default.
func (uc *LedgerUseCase) WithMaxAttempts(attempts int) *LedgerUseCase {
	if attempts > 0 {
		uc.maxAttempts = attempts
	}
	return uc
}

// WithCache attaches a balance cache.
func (uc *LedgerUseCase) WithCache(cache Cache) *LedgerUseCase {
	uc.cache = cache
	return uc
}

// WithNotifier attaches the external ledger mirror notifier.
func (uc *LedgerUseCase) WithNotifier(notifier Notifier) *LedgerUseCase {
	uc.notifier = notifier
	return uc
}

// WithRetrier attaches a storage-level retrier that absorbs transient
// database errors around the posting cycle.
func (uc *LedgerUseCase) WithRetrier(retrier Retrier) *LedgerUseCase {
	uc.retrier = retrier
	return uc
}

// WithMetrics attaches posting metrics.
func (uc *LedgerUseCase) WithMetrics(m *metrics.Metrics) *LedgerUseCase {
	uc.metrics = m
	return uc
}

// LineInput describes one debit or credit to post.
type LineInput struct {
	AccountID   string
	Type        domain.LineType
	Amount      decimal.Decimal
	Currency    string
	Kind        domain.TransactionType
	Description string
}

// PostEntryInput describes one balanced journal entry to post.
type PostEntryInput struct {
	Reference   string
	Description string
	EntryDate   time.Time
	Lines       []LineInput

	// Settle, when set, runs inside the posting transaction after every
	// write and before commit. An error aborts the posting, so whatever
	// state Settle records commits atomically with the entry or not at
	// all. Callers use it to bind an aggregate's status to the movement,
	// such as a transfer's COMPLETED transition.
	Settle func(ctx context.Context, tx Transaction) error
}

// PostEntryResult carries the posted entry and the transaction rows
// projected from its lines.
type PostEntryResult struct {
	Entry        *domain.JournalEntry
	Transactions []*domain.Transaction
}

// PostEntry validates and atomically persists one journal entry, its lines,
// and one transaction row per line with a freshly computed balance
// snapshot. Posting is all-or-nothing: either the entry, every line, every
// transaction and every balance write commit together, or nothing does.
// Version conflicts on the touched accounts re-run the whole read-post-write
// cycle under WithOptimisticRetry.
func (uc *LedgerUseCase) PostEntry(ctx context.Context, input PostEntryInput) (*PostEntryResult, error) {
	now := time.Now().UTC()

	entryDate := input.EntryDate
	if entryDate.IsZero() {
		entryDate = now
	}

	entry := &domain.JournalEntry{
		ID:          uc.idGen.Generate(),
		Reference:   input.Reference,
		Description: input.Description,
		EntryDate:   entryDate,
		CreatedAt:   now,
	}
	if entry.Reference == "" {
		entry.Reference = entry.ID
	}

	for _, li := range input.Lines {
		entry.Lines = append(entry.Lines, domain.JournalLine{
			ID:          uc.idGen.Generate(),
			EntryID:     entry.ID,
			AccountID:   li.AccountID,
			Type:        li.Type,
			Amount:      money.Normalize(li.Amount),
			Currency:    li.Currency,
			Description: li.Description,
		})
	}

	if err := entry.Validate(); err != nil {
		uc.recordPostingError(err)
		return nil, err
	}

	var result *PostEntryResult

	post := func() error {
		return WithOptimisticRetry(ctx, uc.maxAttempts, func(ctx context.Context) error {
			res, err := uc.postOnce(ctx, entry, input, now)
			if err != nil {
				if uc.metrics != nil && errors.Is(err, domain.ErrVersionConflict) {
					uc.metrics.VersionRetries.Inc()
				}
				return err
			}

			result = res

			return nil
		})
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, post)
	} else {
		err = post()
	}
	if err != nil {
		uc.recordPostingError(err)
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesPosted.Inc()
		uc.metrics.EntryLines.Observe(float64(len(entry.Lines)))
		uc.metrics.PostingDuration.Observe(time.Since(now).Seconds())
	}

	for _, txn := range result.Transactions {
		uc.invalidateBalance(ctx, txn.AccountID)
	}

	return result, nil
}

func (uc *LedgerUseCase) recordPostingError(err error) {
	if uc.metrics == nil {
		return
	}

	uc.metrics.PostingErrors.WithLabelValues(postingErrorLabel(err)).Inc()
}

func postingErrorLabel(err error) string {
	var (
		insufficientErr *domain.InsufficientFundsError
		unbalancedErr   *domain.UnbalancedEntryError
	)

	switch {
	case errors.As(err, &insufficientErr):
		return "insufficient_funds"
	case errors.As(err, &unbalancedErr):
		return "unbalanced"
	case errors.Is(err, domain.ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, domain.ErrCurrencyMismatch):
		return "currency_mismatch"
	case errors.Is(err, domain.ErrDuplicateTransaction):
		return "duplicate_reference"
	case errors.Is(err, domain.ErrAccountNotActive):
		return "account_not_active"
	default:
		return "other"
	}
}

// postOnce runs one attempt of the posting cycle inside a fresh database
// transaction. Reads and writes touch accounts in ascending id order so two
// transfers over the same pair can never deadlock.
func (uc *LedgerUseCase) postOnce(ctx context.Context, entry *domain.JournalEntry, input PostEntryInput, now time.Time) (*PostEntryResult, error) {
	lines := input.Lines

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := uniqueAccountIDs(entry.Lines)
	sort.Strings(ids)

	accounts := make(map[string]*domain.Account, len(ids))
	for _, id := range ids {
		account, err := uc.accountRepo.GetByIDTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}

		if !account.IsActive() {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotActive, account.ID)
		}

		if account.Currency != entry.Currency() {
			return nil, domain.ErrCurrencyMismatch
		}

		accounts[id] = account
	}

	// Validate every debit before any write so a failing entry leaves no
	// partial state behind.
	for i := range entry.Lines {
		line := &entry.Lines[i]
		if line.Type != domain.LineTypeDebit {
			continue
		}

		if err := accounts[line.AccountID].ValidateDebit(line.Amount); err != nil {
			return nil, err
		}
	}

	if err := uc.journalRepo.CreateEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	txns := make([]*domain.Transaction, 0, len(entry.Lines))

	for _, id := range ids {
		account := accounts[id]

		for i := range entry.Lines {
			line := &entry.Lines[i]
			if line.AccountID != id {
				continue
			}

			newBalance := account.Balance.Add(line.SignedAmount())

			txn := &domain.Transaction{
				ID:           uc.idGen.Generate(),
				AccountID:    id,
				Type:         transactionKind(lines[i], line),
				Amount:       line.Amount,
				Currency:     line.Currency,
				BalanceAfter: newBalance,
				Description:  lineDescription(line, entry),
				Reference:    entry.Reference,
				CreatedAt:    now,
			}

			if err := uc.txnRepo.Create(ctx, tx, txn); err != nil {
				return nil, err
			}

			account.Balance = newBalance
			txns = append(txns, txn)
		}

		if err := uc.accountRepo.UpdateBalance(ctx, tx, id, account.Balance, account.Version, now); err != nil {
			return nil, err
		}
	}

	if input.Settle != nil {
		if err := input.Settle(ctx, tx); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &PostEntryResult{Entry: entry, Transactions: txns}, nil
}

// DepositInput represents a deposit into an account.
type DepositInput struct {
	AccountID   string
	Amount      decimal.Decimal
	Description string
	Reference   string
}

// Deposit credits the account and debits the system cash account of the
// account's currency with one balanced entry. Returns the transaction
// projected onto the customer account.
func (uc *LedgerUseCase) Deposit(ctx context.Context, input DepositInput) (*domain.Transaction, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	account, err := uc.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}

	cashID, err := uc.settlementAccount(ctx, account.Currency)
	if err != nil {
		return nil, err
	}

	reference := input.Reference
	if reference == "" {
		reference = uc.idGen.Generate()
	}

	result, err := uc.PostEntry(ctx, PostEntryInput{
		Reference:   reference,
		Description: input.Description,
		Lines: []LineInput{
			{AccountID: cashID, Type: domain.LineTypeDebit, Amount: input.Amount, Currency: account.Currency, Kind: domain.TransactionTypeDebit},
			{AccountID: input.AccountID, Type: domain.LineTypeCredit, Amount: input.Amount, Currency: account.Currency, Kind: domain.TransactionTypeCredit, Description: input.Description},
		},
	})
	if err != nil {
		return nil, err
	}

	txn := transactionFor(result.Transactions, input.AccountID)

	uc.notify(domain.NewDepositCommand(input.AccountID, txn.Amount, txn.Currency, reference))

	return txn, nil
}

// WithdrawInput represents a withdrawal from an account.
type WithdrawInput struct {
	AccountID   string
	Amount      decimal.Decimal
	Description string
	Reference   string
}

// Withdraw debits the account and credits the system cash account of the
// account's currency. A debit that would overdraw the account fails with
// domain.InsufficientFundsError and leaves no entry behind.
func (uc *LedgerUseCase) Withdraw(ctx context.Context, input WithdrawInput) (*domain.Transaction, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	account, err := uc.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}

	cashID, err := uc.settlementAccount(ctx, account.Currency)
	if err != nil {
		return nil, err
	}

	reference := input.Reference
	if reference == "" {
		reference = uc.idGen.Generate()
	}

	result, err := uc.PostEntry(ctx, PostEntryInput{
		Reference:   reference,
		Description: input.Description,
		Lines: []LineInput{
			{AccountID: input.AccountID, Type: domain.LineTypeDebit, Amount: input.Amount, Currency: account.Currency, Kind: domain.TransactionTypeDebit, Description: input.Description},
			{AccountID: cashID, Type: domain.LineTypeCredit, Amount: input.Amount, Currency: account.Currency, Kind: domain.TransactionTypeCredit},
		},
	})
	if err != nil {
		return nil, err
	}

	txn := transactionFor(result.Transactions, input.AccountID)

	uc.notify(domain.NewWithdrawCommand(input.AccountID, txn.Amount, txn.Currency, reference))

	return txn, nil
}

// settlementAccount resolves the system cash account balancing deposits
// and withdrawals in the given currency. The configured account serves its
// own currency; other currencies get a derived account, created on first
// use with a negative balance allowed. Closed-system double entry holds
// per currency: every customer credit has a matching cash debit in the
// same currency.
func (uc *LedgerUseCase) settlementAccount(ctx context.Context, currency string) (string, error) {
	base, err := uc.accountRepo.GetByID(ctx, uc.cashAccountID)
	if err == nil && base.Currency == currency {
		return base.ID, nil
	}
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return "", err
	}

	id := uc.cashAccountID + "-" + strings.ToLower(currency)

	if _, err := uc.accountRepo.GetByID(ctx, id); err == nil {
		return id, nil
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return "", err
	}

	now := time.Now().UTC()

	account := &domain.Account{
		ID:            id,
		Currency:      currency,
		Status:        domain.AccountStatusActive,
		Balance:       decimal.Zero,
		AllowNegative: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		// Another writer may have created the same account first.
		if _, getErr := uc.accountRepo.GetByID(ctx, id); getErr == nil {
			return id, nil
		}

		return "", err
	}

	return id, nil
}

// GetAccountBalance returns the current balance snapshot, served from cache
// when fresh.
func (uc *LedgerUseCase) GetAccountBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	if uc.cache != nil {
		if cached, err := uc.cache.Get(ctx, balanceCacheKey(accountID)); err == nil && len(cached) > 0 {
			if balance, err := decimal.NewFromString(string(cached)); err == nil {
				return balance, nil
			}
		}
	}

	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	if uc.cache != nil {
		_ = uc.cache.Set(ctx, balanceCacheKey(accountID), []byte(account.Balance.String()), BalanceCacheTTL)
	}

	return account.Balance, nil
}

// DeriveBalance recomputes the balance from journal lines: sum of credits
// minus sum of debits.
func (uc *LedgerUseCase) DeriveBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return uc.journalRepo.DeriveBalance(ctx, accountID)
}

// HistoryInput represents a transaction history query.
type HistoryInput struct {
	AccountID string
	Filter    TransactionFilter
}

// GetTransactionHistory lists transaction rows for an account, newest first.
func (uc *LedgerUseCase) GetTransactionHistory(ctx context.Context, input HistoryInput) ([]*domain.Transaction, error) {
	if input.Filter.Limit <= 0 {
		input.Filter.Limit = DefaultPageSize
	}
	if input.Filter.Limit > MaxPageSize {
		input.Filter.Limit = MaxPageSize
	}

	return uc.txnRepo.ListByAccount(ctx, input.AccountID, input.Filter)
}

// ReconciliationResult compares the derived balance against the latest
// snapshot for one account.
type ReconciliationResult struct {
	AccountID       string
	DerivedBalance  decimal.Decimal
	SnapshotBalance decimal.Decimal
	Consistent      bool
	CheckedAt       time.Time
}

// VerifyAccount recomputes the balance from journal lines and compares it
// with the balance-after of the account's most recent transaction. The two
// must agree; the snapshot is only a materialized view of the journal.
func (uc *LedgerUseCase) VerifyAccount(ctx context.Context, accountID string) (*ReconciliationResult, error) {
	derived, err := uc.journalRepo.DeriveBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}

	snapshot := decimal.Zero

	latest, err := uc.txnRepo.LatestByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		snapshot = latest.BalanceAfter
	}

	return &ReconciliationResult{
		AccountID:       accountID,
		DerivedBalance:  derived,
		SnapshotBalance: snapshot,
		Consistent:      derived.Equal(snapshot),
		CheckedAt:       time.Now().UTC(),
	}, nil
}

// CheckConsistency verifies that ledger-wide debits equal credits.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (bool, error) {
	debits, credits, err := uc.journalRepo.SumByType(ctx)
	if err != nil {
		return false, err
	}

	return debits.Equal(credits), nil
}

func (uc *LedgerUseCase) notify(cmd domain.MirrorCommand) {
	if uc.notifier != nil {
		uc.notifier.Enqueue(cmd)
	}
}

func (uc *LedgerUseCase) invalidateBalance(ctx context.Context, accountID string) {
	if uc.cache != nil {
		_ = uc.cache.Delete(ctx, balanceCacheKey(accountID))
	}
}

func balanceCacheKey(accountID string) string {
	return "balance:" + accountID
}

func uniqueAccountIDs(lines []domain.JournalLine) []string {
	seen := make(map[string]bool, len(lines))

	var ids []string
	for i := range lines {
		if !seen[lines[i].AccountID] {
			seen[lines[i].AccountID] = true
			ids = append(ids, lines[i].AccountID)
		}
	}

	return ids
}

func transactionKind(input LineInput, line *domain.JournalLine) domain.TransactionType {
	if input.Kind != "" {
		return input.Kind
	}

	if line.Type == domain.LineTypeDebit {
		return domain.TransactionTypeDebit
	}

	return domain.TransactionTypeCredit
}

func lineDescription(line *domain.JournalLine, entry *domain.JournalEntry) string {
	if line.Description != "" {
		return line.Description
	}

	return entry.Description
}

func transactionFor(txns []*domain.Transaction, accountID string) *domain.Transaction {
	for _, txn := range txns {
		if txn.AccountID == accountID {
			return txn
		}
	}

	return nil
}
