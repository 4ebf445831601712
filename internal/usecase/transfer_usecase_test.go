package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/infrastructure/metrics"
	"github.com/iho/corebank/internal/usecase"
	"github.com/iho/corebank/internal/usecase/mocks"
)

type transferFixture struct {
	*ledgerFixture
	transfers *mocks.MockTransferRepository
	recurring *mocks.MockRecurringTransferRepository
	uc        *usecase.TransferUseCase
}

func newTransferFixture(t *testing.T) *transferFixture {
	t.Helper()

	f := &transferFixture{
		ledgerFixture: newLedgerFixture(t),
		transfers:     mocks.NewMockTransferRepository(),
		recurring:     mocks.NewMockRecurringTransferRepository(),
	}

	f.uc = usecase.NewTransferUseCase(
		f.transfers,
		f.recurring,
		f.ledger,
		mocks.NewMockIDGenerator(),
		zerolog.Nop(),
	)

	return f
}

func TestTransferUseCase_CreateTransfer(t *testing.T) {
	f := newTransferFixture(t)
	f.seedAccount(t, "acc-a", "100")
	f.seedAccount(t, "acc-b", "0")

	transfer, err := f.uc.CreateTransfer(context.Background(), usecase.CreateTransferInput{
		SourceAccountID: "acc-a",
		DestinationID:   "acc-b",
		Amount:          dec(t, "40"),
		Currency:        "USD",
		Description:     "rent",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TransferStatusCompleted, transfer.Status)
	assert.Equal(t, domain.TransferTypeImmediate, transfer.Type)

	assert.True(t, f.balance(t, "acc-a").Equal(dec(t, "60")))
	assert.True(t, f.balance(t, "acc-b").Equal(dec(t, "40")))

	stored, err := f.uc.GetTransfer(context.Background(), transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCompleted, stored.Status)

	// One balanced entry moved the money.
	entries := f.journal.Entries()
	require.Len(t, entries, 1)
	require.NoError(t, entries[0].Validate())
}

func TestTransferUseCase_CreateTransfer_SameAccount(t *testing.T) {
	f := newTransferFixture(t)
	f.seedAccount(t, "acc-a", "100")

	_, err := f.uc.CreateTransfer(context.Background(), usecase.CreateTransferInput{
		SourceAccountID: "acc-a",
		DestinationID:   "acc-a",
		Amount:          dec(t, "10"),
		Currency:        "USD",
	})

	assert.ErrorIs(t, err, domain.ErrSameAccount)
	assert.Empty(t, f.journal.Entries())
}

func TestTransferUseCase_CreateTransfer_InsufficientFunds(t *testing.T) {
	f := newTransferFixture(t)
	f.seedAccount(t, "acc-a", "10")
	f.seedAccount(t, "acc-b", "0")

	_, err := f.uc.CreateTransfer(context.Background(), usecase.CreateTransferInput{
		SourceAccountID: "acc-a",
		DestinationID:   "acc-b",
		Amount:          dec(t, "50"),
		Currency:        "USD",
	})

	var insufficientErr *domain.InsufficientFundsError
	require.ErrorAs(t, err, &insufficientErr)

	// The transfer record survives as FAILED; no money moved.
	transfers, listErr := f.uc.ListTransfersByAccount(context.Background(), "acc-a", 10, 0)
	require.NoError(t, listErr)
	require.Len(t, transfers, 1)
	assert.Equal(t, domain.TransferStatusFailed, transfers[0].Status)
	assert.NotEmpty(t, transfers[0].FailureReason)

	assert.True(t, f.balance(t, "acc-a").Equal(dec(t, "10")))
	assert.True(t, f.balance(t, "acc-b").IsZero())
	assert.Empty(t, f.journal.Entries())
}

func TestTransferUseCase_ScheduleTransfer(t *testing.T) {
	f := newTransferFixture(t)
	f.seedAccount(t, "acc-a", "100")
	f.seedAccount(t, "acc-b", "0")

	executeAt := time.Now().UTC().Add(time.Hour)

	transfer, err := f.uc.ScheduleTransfer(context.Background(), usecase.ScheduleTransferInput{
		CreateTransferInput: usecase.CreateTransferInput{
			SourceAccountID: "acc-a",
			DestinationID:   "acc-b",
			Amount:          dec(t, "40"),
			Currency:        "USD",
		},
		ExecuteAt: executeAt,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TransferStatusScheduled, transfer.Status)
	require.NotNil(t, transfer.ExecuteAt)
	assert.True(t, transfer.ExecuteAt.Equal(executeAt))

	// Nothing moves until the execution time passes.
	assert.True(t, f.balance(t, "acc-a").Equal(dec(t, "100")))
	assert.Empty(t, f.journal.Entries())

	executed, err := f.uc.ExecuteDueTransfers(context.Background(), time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Zero(t, executed)

	executed, err = f.uc.ExecuteDueTransfers(context.Background(), executeAt.Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, executed)

	assert.True(t, f.balance(t, "acc-a").Equal(dec(t, "60")))
	assert.True(t, f.balance(t, "acc-b").Equal(dec(t, "40")))

	stored, err := f.uc.GetTransfer(context.Background(), transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCompleted, stored.Status)
}

func TestTransferUseCase_CancelScheduledTransfer(t *testing.T) {
	f := newTransferFixture(t)
	f.seedAccount(t, "acc-a", "100")
	f.seedAccount(t, "acc-b", "0")

	executeAt := time.Now().UTC().Add(-time.Minute)

	transfer, err := f.uc.ScheduleTransfer(context.Background(), usecase.ScheduleTransferInput{
		CreateTransferInput: usecase.CreateTransferInput{
			SourceAccountID: "acc-a",
			DestinationID:   "acc-b",
			Amount:          dec(t, "40"),
			Currency:        "USD",
		},
		ExecuteAt: executeAt,
	})
	require.NoError(t, err)

	cancelled, err := f.uc.CancelTransfer(context.Background(), transfer.ID, "customer request")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCancelled, cancelled.Status)
	assert.Equal(t, "customer request", cancelled.FailureReason)

	// A cancelled transfer is never picked up by the sweep.
	executed, err := f.uc.ExecuteDueTransfers(context.Background(), time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Zero(t, executed)

	assert.True(t, f.balance(t, "acc-a").Equal(dec(t, "100")))
	assert.Empty(t, f.journal.Entries())
}

func TestTransferUseCase_CancelCompletedTransfer(t *testing.T) {
	f := newTransferFixture(t)
	f.seedAccount(t, "acc-a", "100")
	f.seedAccount(t, "acc-b", "0")

	transfer, err := f.uc.CreateTransfer(context.Background(), usecase.CreateTransferInput{
		SourceAccountID: "acc-a",
		DestinationID:   "acc-b",
		Amount:          dec(t, "40"),
		Currency:        "USD",
	})
	require.NoError(t, err)

	_, err = f.uc.CancelTransfer(context.Background(), transfer.ID, "too late")

	var transitionErr *domain.InvalidStateTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, domain.TransferStatusCompleted, transitionErr.From)
	assert.Equal(t, domain.TransferStatusCancelled, transitionErr.To)

	// The completed movement stands.
	assert.True(t, f.balance(t, "acc-b").Equal(dec(t, "40")))
}

func TestTransferUseCase_CancelTransfer_LostRace(t *testing.T) {
	f := newTransferFixture(t)
	f.seedAccount(t, "acc-a", "100")
	f.seedAccount(t, "acc-b", "0")

	executeAt := time.Now().UTC().Add(time.Hour)

	transfer, err := f.uc.ScheduleTransfer(context.Background(), usecase.ScheduleTransferInput{
		CreateTransferInput: usecase.CreateTransferInput{
			SourceAccountID: "acc-a",
			DestinationID:   "acc-b",
			Amount:          dec(t, "40"),
			Currency:        "USD",
		},
		ExecuteAt: executeAt,
	})
	require.NoError(t, err)

	// A sweep claims the transfer first.
	require.NoError(t, f.transfers.UpdateStatus(context.Background(), nil, transfer.ID, domain.TransferStatusScheduled, domain.TransferStatusPending, "", time.Now().UTC()))

	// And wins the guarded write race against our cancel.
	f.transfers.UpdateStatusFunc = func(ctx context.Context, tx usecase.Transaction, id string, from, to domain.TransferStatus, reason string, updatedAt time.Time) error {
		return domain.ErrVersionConflict
	}

	_, err = f.uc.CancelTransfer(context.Background(), transfer.ID, "customer request")

	var transitionErr *domain.InvalidStateTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, domain.TransferStatusPending, transitionErr.From)
}

// recordingTx observes whether the posting transaction committed.
type recordingTx struct {
	committed  bool
	rolledBack bool
}

func (t *recordingTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *recordingTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

func TestTransferUseCase_CancelDuringExecutionAbortsPosting(t *testing.T) {
	f := newTransferFixture(t)
	f.seedAccount(t, "acc-a", "100")
	f.seedAccount(t, "acc-b", "0")

	tx := &recordingTx{}
	f.txManager.BeginFunc = func(ctx context.Context) (usecase.Transaction, error) {
		return tx, nil
	}

	// A cancel lands after the journal writes but before settlement and
	// wins the guarded status update.
	var settleTx usecase.Transaction
	f.transfers.UpdateStatusFunc = func(ctx context.Context, txArg usecase.Transaction, id string, from, to domain.TransferStatus, reason string, updatedAt time.Time) error {
		if to != domain.TransferStatusCompleted {
			t.Fatalf("unexpected status write: %s -> %s", from, to)
		}
		settleTx = txArg

		override := f.transfers.UpdateStatusFunc
		f.transfers.UpdateStatusFunc = nil
		defer func() { f.transfers.UpdateStatusFunc = override }()
		if err := f.transfers.UpdateStatus(ctx, nil, id, from, domain.TransferStatusCancelled, "customer request", updatedAt); err != nil {
			t.Fatalf("cancel: %v", err)
		}

		return domain.ErrVersionConflict
	}

	_, err := f.uc.CreateTransfer(context.Background(), usecase.CreateTransferInput{
		SourceAccountID: "acc-a",
		DestinationID:   "acc-b",
		Amount:          dec(t, "40"),
		Currency:        "USD",
	})

	var transitionErr *domain.InvalidStateTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, domain.TransferStatusCancelled, transitionErr.From)
	assert.Equal(t, domain.TransferStatusCompleted, transitionErr.To)

	// Settlement ran inside the posting transaction, and losing it kept
	// the entry from committing: the cancelled transfer moved no money.
	require.NotNil(t, settleTx)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)

	stored, err := f.uc.GetTransfer(context.Background(), transitionErr.TransferID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCancelled, stored.Status)
}

func TestTransferUseCase_CompletionCommitsWithPosting(t *testing.T) {
	f := newTransferFixture(t)
	f.seedAccount(t, "acc-a", "100")
	f.seedAccount(t, "acc-b", "0")

	var events []string

	f.txManager.BeginFunc = func(ctx context.Context) (usecase.Transaction, error) {
		return &eventTx{events: &events}, nil
	}
	f.transfers.UpdateStatusFunc = func(ctx context.Context, txArg usecase.Transaction, id string, from, to domain.TransferStatus, reason string, updatedAt time.Time) error {
		if txArg == nil {
			t.Fatal("settlement must carry the posting transaction")
		}
		events = append(events, "settle")

		override := f.transfers.UpdateStatusFunc
		f.transfers.UpdateStatusFunc = nil
		defer func() { f.transfers.UpdateStatusFunc = override }()

		return f.transfers.UpdateStatus(ctx, nil, id, from, to, reason, updatedAt)
	}

	transfer, err := f.uc.CreateTransfer(context.Background(), usecase.CreateTransferInput{
		SourceAccountID: "acc-a",
		DestinationID:   "acc-b",
		Amount:          dec(t, "40"),
		Currency:        "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCompleted, transfer.Status)

	// The COMPLETED transition happens before the posting commits, never
	// as a separate write afterwards.
	assert.Equal(t, []string{"settle", "commit"}, events)
}

type eventTx struct {
	events *[]string
}

func (t *eventTx) Commit(ctx context.Context) error {
	*t.events = append(*t.events, "commit")
	return nil
}

func (t *eventTx) Rollback(ctx context.Context) error {
	return nil
}

func TestTransferUseCase_ReverseTransfer(t *testing.T) {
	f := newTransferFixture(t)
	f.seedAccount(t, "acc-a", "100")
	f.seedAccount(t, "acc-b", "0")

	original, err := f.uc.CreateTransfer(context.Background(), usecase.CreateTransferInput{
		SourceAccountID: "acc-a",
		DestinationID:   "acc-b",
		Amount:          dec(t, "40"),
		Currency:        "USD",
	})
	require.NoError(t, err)

	reversal, err := f.uc.ReverseTransfer(context.Background(), original.ID, "posted in error")
	require.NoError(t, err)

	assert.Equal(t, domain.TransferStatusCompleted, reversal.Status)
	require.NotNil(t, reversal.ReversedTransferID)
	assert.Equal(t, original.ID, *reversal.ReversedTransferID)

	// Both entries stand; the correction is a new movement, not an edit.
	assert.True(t, f.balance(t, "acc-a").Equal(dec(t, "100")))
	assert.True(t, f.balance(t, "acc-b").IsZero())
	assert.Len(t, f.journal.Entries(), 2)

	stored, err := f.uc.GetTransfer(context.Background(), original.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCompleted, stored.Status)

	// The compensation rows are tagged as such.
	var compensations int
	for _, txn := range f.txns.Transactions() {
		if txn.Type == domain.TransactionTypeCompensation {
			compensations++
		}
	}
	assert.Equal(t, 2, compensations)
}

func TestTransferUseCase_ReverseTransfer_NotCompleted(t *testing.T) {
	f := newTransferFixture(t)
	f.seedAccount(t, "acc-a", "100")
	f.seedAccount(t, "acc-b", "0")

	transfer, err := f.uc.ScheduleTransfer(context.Background(), usecase.ScheduleTransferInput{
		CreateTransferInput: usecase.CreateTransferInput{
			SourceAccountID: "acc-a",
			DestinationID:   "acc-b",
			Amount:          dec(t, "40"),
			Currency:        "USD",
		},
		ExecuteAt: time.Now().UTC().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = f.uc.ReverseTransfer(context.Background(), transfer.ID, "nope")
	assert.ErrorIs(t, err, usecase.ErrTransferNotReversible)
}

func TestTransferUseCase_RecurringTransfer(t *testing.T) {
	f := newTransferFixture(t)
	f.seedAccount(t, "acc-a", "100")
	f.seedAccount(t, "acc-b", "0")

	start := time.Now().UTC().Add(-time.Minute)

	recurring, err := f.uc.CreateRecurringTransfer(context.Background(), usecase.CreateRecurringTransferInput{
		SourceAccountID: "acc-a",
		DestinationID:   "acc-b",
		Amount:          dec(t, "10"),
		Currency:        "USD",
		Frequency:       domain.FrequencyDaily,
		StartAt:         start,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RecurringStatusActive, recurring.Status)

	fired, err := f.uc.FireDueRecurring(context.Background(), time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	assert.True(t, f.balance(t, "acc-a").Equal(dec(t, "90")))
	assert.True(t, f.balance(t, "acc-b").Equal(dec(t, "10")))

	// The schedule advanced one step; the same slot does not fire twice.
	updated, err := f.recurring.GetByID(context.Background(), recurring.ID)
	require.NoError(t, err)
	assert.True(t, updated.NextExecutionAt.Equal(start.AddDate(0, 0, 1)))

	fired, err = f.uc.FireDueRecurring(context.Background(), time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Zero(t, fired)
	assert.True(t, f.balance(t, "acc-b").Equal(dec(t, "10")))
}

func TestTransferUseCase_CancelRecurringTransfer(t *testing.T) {
	f := newTransferFixture(t)
	f.seedAccount(t, "acc-a", "100")
	f.seedAccount(t, "acc-b", "0")

	recurring, err := f.uc.CreateRecurringTransfer(context.Background(), usecase.CreateRecurringTransferInput{
		SourceAccountID: "acc-a",
		DestinationID:   "acc-b",
		Amount:          dec(t, "10"),
		Currency:        "USD",
		Frequency:       domain.FrequencyWeekly,
		StartAt:         time.Now().UTC().Add(-time.Minute),
	})
	require.NoError(t, err)

	cancelled, err := f.uc.CancelRecurringTransfer(context.Background(), recurring.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecurringStatusCancelled, cancelled.Status)
	assert.False(t, cancelled.Active)

	fired, err := f.uc.FireDueRecurring(context.Background(), time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Zero(t, fired)
	assert.True(t, f.balance(t, "acc-a").Equal(dec(t, "100")))
}

func TestTransferUseCase_ExecuteDueTransfers_SkipsClaimed(t *testing.T) {
	f := newTransferFixture(t)
	f.seedAccount(t, "acc-a", "100")
	f.seedAccount(t, "acc-b", "0")

	transfer, err := f.uc.ScheduleTransfer(context.Background(), usecase.ScheduleTransferInput{
		CreateTransferInput: usecase.CreateTransferInput{
			SourceAccountID: "acc-a",
			DestinationID:   "acc-b",
			Amount:          dec(t, "40"),
			Currency:        "USD",
		},
		ExecuteAt: time.Now().UTC().Add(-time.Minute),
	})
	require.NoError(t, err)

	// A concurrent sweep claims the transfer between ListDue and the
	// guarded claim; this sweep must skip it without failing.
	f.transfers.UpdateStatusFunc = func(ctx context.Context, tx usecase.Transaction, id string, from, to domain.TransferStatus, reason string, updatedAt time.Time) error {
		return domain.ErrVersionConflict
	}

	executed, err := f.uc.ExecuteDueTransfers(context.Background(), time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Zero(t, executed)

	assert.True(t, f.balance(t, "acc-a").Equal(dec(t, "100")))
	assert.Empty(t, f.journal.Entries())

	_ = transfer
}

func TestTransferUseCase_Metrics(t *testing.T) {
	f := newTransferFixture(t)
	m := metrics.NewWith(prometheus.NewRegistry())
	f.ledger.WithMetrics(m)
	f.uc.WithMetrics(m)

	f.seedAccount(t, "acc-a", "100")
	f.seedAccount(t, "acc-b", "0")

	_, err := f.uc.CreateTransfer(context.Background(), usecase.CreateTransferInput{
		SourceAccountID: "acc-a",
		DestinationID:   "acc-b",
		Amount:          dec(t, "40"),
		Currency:        "USD",
	})
	require.NoError(t, err)

	_, err = f.uc.CreateTransfer(context.Background(), usecase.CreateTransferInput{
		SourceAccountID: "acc-a",
		DestinationID:   "acc-b",
		Amount:          dec(t, "500"),
		Currency:        "USD",
	})
	require.Error(t, err)

	assert.Equal(t, 2.0, promtestutil.ToFloat64(m.TransfersCreated.WithLabelValues("immediate")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.TransfersCompleted))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.TransfersFailed))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.EntriesPosted))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.PostingErrors.WithLabelValues("insufficient_funds")))
}
