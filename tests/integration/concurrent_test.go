package integration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/corebank/internal/usecase"
	"github.com/iho/corebank/tests/testutil"
)

func TestConcurrentDepositsConverge(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	s := newStack(testDB)
	account := testDB.CreateAccount(ctx, "USD", false)

	const workers = 20

	var wg sync.WaitGroup
	wg.Add(workers)
	errs := make(chan error, workers)

	for i := range workers {
		go func(i int) {
			defer wg.Done()

			_, err := s.ledger.Deposit(ctx, usecase.DepositInput{
				AccountID: account.ID,
				Amount:    decimal.NewFromInt(10),
				Reference: fmt.Sprintf("dep-%d", i),
			})
			if err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("deposit failed: %v", err)
	}

	balance, err := s.ledger.GetAccountBalance(ctx, account.ID)
	if err != nil {
		t.Fatalf("balance lookup failed: %v", err)
	}
	if want := decimal.NewFromInt(workers * 10); !balance.Equal(want) {
		t.Fatalf("expected balance %s, got %s", want, balance)
	}

	result, err := s.ledger.VerifyAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !result.Consistent {
		t.Fatalf("expected derived balance to match snapshot, got derived=%s snapshot=%s",
			result.DerivedBalance, result.SnapshotBalance)
	}
}

func TestConcurrentTransfersNoOverdraft(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	s := newStack(testDB)

	source := testDB.CreateAccount(ctx, "USD", false)
	dest := testDB.CreateAccount(ctx, "USD", false)
	fund(ctx, t, s, source.ID, 100)

	// 20 workers race for 10 units each; only 10 can fit.
	const workers = 20

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()

			_, err := s.transfers.CreateTransfer(ctx, usecase.CreateTransferInput{
				SourceAccountID: source.ID,
				DestinationID:   dest.ID,
				Amount:          decimal.NewFromInt(10),
				Currency:        "USD",
			})
			if err == nil {
				succeeded.Add(1)
			}
		}()
	}

	wg.Wait()

	sourceBalance, err := s.ledger.GetAccountBalance(ctx, source.ID)
	if err != nil {
		t.Fatalf("balance lookup failed: %v", err)
	}
	if sourceBalance.IsNegative() {
		t.Fatalf("source overdrawn: %s", sourceBalance)
	}

	destBalance, _ := s.ledger.GetAccountBalance(ctx, dest.ID)
	moved := decimal.NewFromInt(int64(succeeded.Load()) * 10)
	if !destBalance.Equal(moved) {
		t.Fatalf("expected %s delivered for %d successes, got %s", moved, succeeded.Load(), destBalance)
	}
	if !sourceBalance.Add(destBalance).Equal(decimal.NewFromInt(100)) {
		t.Fatalf("money leaked: source=%s dest=%s", sourceBalance, destBalance)
	}

	consistent, err := s.ledger.CheckConsistency(ctx)
	if err != nil {
		t.Fatalf("consistency check failed: %v", err)
	}
	if !consistent {
		t.Fatal("expected a consistent ledger under contention")
	}
}
