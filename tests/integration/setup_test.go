package integration

import (
	"github.com/rs/zerolog"

	postgresrepo "github.com/iho/corebank/internal/adapter/repository/postgres"
	"github.com/iho/corebank/internal/usecase"
	"github.com/iho/corebank/tests/testutil"
)

// stack wires the postgres-backed use cases used across the integration
// tests.
type stack struct {
	accounts  *usecase.AccountUseCase
	ledger    *usecase.LedgerUseCase
	transfers *usecase.TransferUseCase
	guard     *usecase.IdempotencyGuard

	accountRepo  *postgresrepo.AccountRepository
	journalRepo  *postgresrepo.JournalRepository
	transferRepo *postgresrepo.TransferRepository
}

func newStack(db *testutil.TestDB) *stack {
	pool := db.Pool

	txManager := postgresrepo.NewTxManager(pool)
	accountRepo := postgresrepo.NewAccountRepository(pool)
	journalRepo := postgresrepo.NewJournalRepository(pool)
	txnRepo := postgresrepo.NewTransactionRepository(pool)
	transferRepo := postgresrepo.NewTransferRepository(pool)
	recurringRepo := postgresrepo.NewRecurringTransferRepository(pool)
	idempotencyRepo := postgresrepo.NewIdempotencyRepository(pool)
	idGen := postgresrepo.NewULIDGenerator()

	ledgerUC := usecase.NewLedgerUseCase(txManager, accountRepo, journalRepo, txnRepo, idGen, testutil.CashAccountID)
	transferUC := usecase.NewTransferUseCase(transferRepo, recurringRepo, ledgerUC, idGen, zerolog.Nop())

	return &stack{
		accounts:     usecase.NewAccountUseCase(accountRepo, idGen),
		ledger:       ledgerUC,
		transfers:    transferUC,
		guard:        usecase.NewIdempotencyGuard(idempotencyRepo, 0),
		accountRepo:  accountRepo,
		journalRepo:  journalRepo,
		transferRepo: transferRepo,
	}
}
