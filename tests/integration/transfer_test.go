package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/usecase"
	"github.com/iho/corebank/tests/testutil"
)

func fund(ctx context.Context, t *testing.T, s *stack, accountID string, amount int64) {
	t.Helper()

	_, err := s.ledger.Deposit(ctx, usecase.DepositInput{
		AccountID: accountID,
		Amount:    decimal.NewFromInt(amount),
		Reference: "fund-" + accountID,
	})
	if err != nil {
		t.Fatalf("failed to fund account %s: %v", accountID, err)
	}
}

func TestTransferLifecycle(t *testing.T) {
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

	transfer, err := s.transfers.CreateTransfer(ctx, usecase.CreateTransferInput{
		SourceAccountID: source.ID,
		DestinationID:   dest.ID,
		Amount:          decimal.NewFromInt(40),
		Currency:        "USD",
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if transfer.Status != domain.TransferStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s (%s)", transfer.Status, transfer.FailureReason)
	}

	sourceBalance, _ := s.ledger.GetAccountBalance(ctx, source.ID)
	destBalance, _ := s.ledger.GetAccountBalance(ctx, dest.ID)
	if !sourceBalance.Equal(decimal.NewFromInt(60)) || !destBalance.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected 60/40 after transfer, got %s/%s", sourceBalance, destBalance)
	}

	// Reversal restores both sides with a compensating movement.
	reversal, err := s.transfers.ReverseTransfer(ctx, transfer.ID, "undo")
	if err != nil {
		t.Fatalf("reversal failed: %v", err)
	}
	if reversal.ReversedTransferID == nil || *reversal.ReversedTransferID != transfer.ID {
		t.Fatalf("expected reversal to reference %s, got %+v", transfer.ID, reversal.ReversedTransferID)
	}

	sourceBalance, _ = s.ledger.GetAccountBalance(ctx, source.ID)
	destBalance, _ = s.ledger.GetAccountBalance(ctx, dest.ID)
	if !sourceBalance.Equal(decimal.NewFromInt(100)) || !destBalance.IsZero() {
		t.Fatalf("expected 100/0 after reversal, got %s/%s", sourceBalance, destBalance)
	}

	consistent, err := s.ledger.CheckConsistency(ctx)
	if err != nil {
		t.Fatalf("consistency check failed: %v", err)
	}
	if !consistent {
		t.Fatal("expected a consistent ledger after reversal")
	}
}

func TestTransferInsufficientFundsMarksFailed(t *testing.T) {
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
	fund(ctx, t, s, source.ID, 10)

	_, err := s.transfers.CreateTransfer(ctx, usecase.CreateTransferInput{
		SourceAccountID: source.ID,
		DestinationID:   dest.ID,
		Amount:          decimal.NewFromInt(50),
		Currency:        "USD",
	})
	if err == nil {
		t.Fatal("expected an insufficient funds error")
	}

	// The transfer record survives as FAILED.
	transfers, err := s.transfers.ListTransfersByAccount(ctx, source.ID, 10, 0)
	if err != nil {
		t.Fatalf("list transfers failed: %v", err)
	}
	if len(transfers) != 1 || transfers[0].Status != domain.TransferStatusFailed {
		t.Fatalf("expected one FAILED transfer, got %+v", transfers)
	}
	if transfers[0].FailureReason == "" {
		t.Fatal("expected a failure reason on the record")
	}

	sourceBalance, _ := s.ledger.GetAccountBalance(ctx, source.ID)
	if !sourceBalance.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected untouched balance 10, got %s", sourceBalance)
	}
}

func TestScheduledTransferSweep(t *testing.T) {
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

	executeAt := time.Now().Add(time.Minute).UTC()
	transfer, err := s.transfers.ScheduleTransfer(ctx, usecase.ScheduleTransferInput{
		CreateTransferInput: usecase.CreateTransferInput{
			SourceAccountID: source.ID,
			DestinationID:   dest.ID,
			Amount:          decimal.NewFromInt(30),
			Currency:        "USD",
		},
		ExecuteAt: executeAt,
	})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if transfer.Status != domain.TransferStatusScheduled {
		t.Fatalf("expected SCHEDULED, got %s", transfer.Status)
	}

	// Not due yet.
	executed, err := s.transfers.ExecuteDueTransfers(ctx, time.Now().UTC(), 10)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if executed != 0 {
		t.Fatalf("expected no executions before due time, got %d", executed)
	}

	// Past due.
	executed, err = s.transfers.ExecuteDueTransfers(ctx, executeAt.Add(time.Second), 10)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected 1 execution, got %d", executed)
	}

	final, err := s.transfers.GetTransfer(ctx, transfer.ID)
	if err != nil {
		t.Fatalf("get transfer failed: %v", err)
	}
	if final.Status != domain.TransferStatusCompleted {
		t.Fatalf("expected COMPLETED after sweep, got %s", final.Status)
	}

	destBalance, _ := s.ledger.GetAccountBalance(ctx, dest.ID)
	if !destBalance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected 30 delivered, got %s", destBalance)
	}
}
