package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/domain/money"
	"github.com/iho/corebank/internal/infrastructure/metrics"
)

// ErrTransferNotReversible is returned when reversing a transfer that never
// completed. Reversal compensates a completed movement; it is not a cancel.
var ErrTransferNotReversible = errors.New("only completed transfers can be reversed")

// errSettlementLost reports that the transfer left PENDING while its
// journal entry was being posted. The posting rolls back; whoever moved
// the transfer first owns its fate.
var errSettlementLost = errors.New("transfer settlement lost to a concurrent update")

// TransferUseCase orchestrates money movement between two accounts as a
// state machine. Money only ever moves through the balanced journal entry
// the ledger posts when a transfer executes; transfer status records where
// in the lifecycle that posting stands.
type TransferUseCase struct {
	transferRepo  TransferRepository
	recurringRepo RecurringTransferRepository
	ledger        *LedgerUseCase
	idGen         IDGenerator
	notifier      Notifier
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewTransferUseCase creates a new TransferUseCase.
func NewTransferUseCase(
	transferRepo TransferRepository,
	recurringRepo RecurringTransferRepository,
	ledger *LedgerUseCase,
	idGen IDGenerator,
	logger zerolog.Logger,
) *TransferUseCase {
	return &TransferUseCase{
		transferRepo:  transferRepo,
		recurringRepo: recurringRepo,
		ledger:        ledger,
		idGen:         idGen,
		logger:        logger,
	}
}

// WithNotifier attaches the external ledger mirror notifier.
func (uc *TransferUseCase) WithNotifier(notifier Notifier) *TransferUseCase {
	uc.notifier = notifier
	return uc
}

// WithMetrics attaches transfer lifecycle metrics.
func (uc *TransferUseCase) WithMetrics(m *metrics.Metrics) *TransferUseCase {
	uc.metrics = m
	return uc
}

// CreateTransferInput represents input for an immediate transfer.
type CreateTransferInput struct {
	SourceAccountID string
	DestinationID   string
	Amount          decimal.Decimal
	Currency        string
	Description     string
	Reference       string
}

// CreateTransfer creates and immediately executes a transfer. The transfer
// starts PENDING; a successful journal post moves it to COMPLETED, any
// posting failure to FAILED. No partial entries ever exist: the post is
// all-or-nothing inside one database transaction.
func (uc *TransferUseCase) CreateTransfer(ctx context.Context, input CreateTransferInput) (*domain.Transfer, error) {
	transfer, err := uc.newTransfer(input, domain.TransferTypeImmediate, domain.TransferStatusPending, nil)
	if err != nil {
		return nil, err
	}

	if err := uc.transferRepo.Create(ctx, nil, transfer); err != nil {
		return nil, err
	}

	uc.recordCreated(transfer.Type)

	return uc.execute(ctx, transfer)
}

// ScheduleTransferInput represents input for a scheduled transfer.
type ScheduleTransferInput struct {
	CreateTransferInput
	ExecuteAt time.Time
}

// ScheduleTransfer creates a transfer in SCHEDULED state. The sweep picks
// it up once its execution time has passed and drives it through the same
// posting path as an immediate transfer.
func (uc *TransferUseCase) ScheduleTransfer(ctx context.Context, input ScheduleTransferInput) (*domain.Transfer, error) {
	transfer, err := uc.newTransfer(input.CreateTransferInput, domain.TransferTypeScheduled, domain.TransferStatusScheduled, &input.ExecuteAt)
	if err != nil {
		return nil, err
	}

	if err := uc.transferRepo.Create(ctx, nil, transfer); err != nil {
		return nil, err
	}

	uc.recordCreated(transfer.Type)

	return transfer, nil
}

// GetTransfer retrieves a transfer by ID.
func (uc *TransferUseCase) GetTransfer(ctx context.Context, id string) (*domain.Transfer, error) {
	return uc.transferRepo.GetByID(ctx, id)
}

// ListTransfersByAccount lists transfers for an account with pagination.
func (uc *TransferUseCase) ListTransfersByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transfer, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	return uc.transferRepo.ListByAccount(ctx, accountID, limit, offset)
}

// CancelTransfer cancels a transfer that has not yet moved money. Only
// PENDING and SCHEDULED transfers can be cancelled; reaching COMPLETED,
// FAILED or CANCELLED fails with InvalidStateTransitionError. Reversing a
// completed transfer is a different operation that posts a compensation
// entry (see ReverseTransfer).
func (uc *TransferUseCase) CancelTransfer(ctx context.Context, id, reason string) (*domain.Transfer, error) {
	transfer, err := uc.transferRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := transfer.Status

	if err := transfer.TransitionTo(domain.TransferStatusCancelled); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	err = uc.transferRepo.UpdateStatus(ctx, nil, id, from, domain.TransferStatusCancelled, reason, now)
	if errors.Is(err, domain.ErrVersionConflict) {
		// The transfer moved first; report the transition that actually failed.
		current, getErr := uc.transferRepo.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}

		return nil, &domain.InvalidStateTransitionError{
			TransferID: id,
			From:       current.Status,
			To:         domain.TransferStatusCancelled,
		}
	}
	if err != nil {
		return nil, err
	}

	transfer.FailureReason = reason
	transfer.UpdatedAt = now

	if uc.metrics != nil {
		uc.metrics.TransfersCancelled.Inc()
	}

	return transfer, nil
}

// ReverseTransfer compensates a completed transfer with a new transfer in
// the opposite direction, posted as COMPENSATION lines. The original
// transfer keeps its COMPLETED status; corrections are new entries, never
// edits.
func (uc *TransferUseCase) ReverseTransfer(ctx context.Context, originalID, description string) (*domain.Transfer, error) {
	original, err := uc.transferRepo.GetByID(ctx, originalID)
	if err != nil {
		return nil, err
	}

	if original.Status != domain.TransferStatusCompleted {
		return nil, fmt.Errorf("%w: transfer %s is %s", ErrTransferNotReversible, originalID, original.Status)
	}

	now := time.Now().UTC()

	reversal := &domain.Transfer{
		ID:                 uc.idGen.Generate(),
		SourceAccountID:    original.DestinationID,
		DestinationID:      original.SourceAccountID,
		Amount:             original.Amount,
		Currency:           original.Currency,
		Status:             domain.TransferStatusPending,
		Type:               domain.TransferTypeImmediate,
		Description:        description,
		ReversedTransferID: &original.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	reversal.Reference = reversal.ID

	if err := uc.transferRepo.Create(ctx, nil, reversal); err != nil {
		return nil, err
	}

	uc.recordCreated(reversal.Type)

	return uc.executeAs(ctx, reversal, domain.TransactionTypeCompensation)
}

// CreateRecurringTransferInput represents input for a recurring template.
type CreateRecurringTransferInput struct {
	SourceAccountID string
	DestinationID   string
	Amount          decimal.Decimal
	Currency        string
	Description     string
	Frequency       domain.Frequency
	StartAt         time.Time
}

// CreateRecurringTransfer creates a template that produces one concrete
// transfer per firing until cancelled.
func (uc *TransferUseCase) CreateRecurringTransfer(ctx context.Context, input CreateRecurringTransferInput) (*domain.RecurringTransfer, error) {
	if input.SourceAccountID == input.DestinationID {
		return nil, domain.ErrSameAccount
	}

	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	now := time.Now().UTC()

	next := input.StartAt
	if next.IsZero() {
		next = input.Frequency.Next(now)
	}

	recurring := &domain.RecurringTransfer{
		ID:              uc.idGen.Generate(),
		SourceAccountID: input.SourceAccountID,
		DestinationID:   input.DestinationID,
		Amount:          money.Normalize(input.Amount),
		Currency:        input.Currency,
		Description:     input.Description,
		Frequency:       input.Frequency,
		NextExecutionAt: next,
		Active:          true,
		Status:          domain.RecurringStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := uc.recurringRepo.Create(ctx, recurring); err != nil {
		return nil, err
	}

	return recurring, nil
}

// CancelRecurringTransfer cancels the template and clears its active flag.
// Transfers it already produced are unaffected.
func (uc *TransferUseCase) CancelRecurringTransfer(ctx context.Context, id string) (*domain.RecurringTransfer, error) {
	recurring, err := uc.recurringRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if err := uc.recurringRepo.UpdateStatus(ctx, id, domain.RecurringStatusCancelled, false, now); err != nil {
		return nil, err
	}

	recurring.Status = domain.RecurringStatusCancelled
	recurring.Active = false
	recurring.UpdatedAt = now

	return recurring, nil
}

// ExecuteDueTransfers drives SCHEDULED transfers whose execution time has
// passed through SCHEDULED -> PENDING -> COMPLETED|FAILED. Each transfer
// either completes fully or is left for the next sweep; a transfer
// cancelled between listing and claiming is skipped. Returns the number of
// transfers that completed.
func (uc *TransferUseCase) ExecuteDueTransfers(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := uc.transferRepo.ListDue(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	executed := 0

	for _, transfer := range due {
		err := uc.transferRepo.UpdateStatus(ctx, nil, transfer.ID, domain.TransferStatusScheduled, domain.TransferStatusPending, "", now)
		if errors.Is(err, domain.ErrVersionConflict) {
			continue // cancelled or claimed by another sweep
		}
		if err != nil {
			return executed, err
		}

		transfer.Status = domain.TransferStatusPending

		if _, err := uc.execute(ctx, transfer); err != nil {
			uc.logger.Warn().Err(err).Str("transfer_id", transfer.ID).Msg("scheduled transfer failed")
			continue
		}

		executed++
	}

	return executed, nil
}

// FireDueRecurring fires recurring templates whose next execution time has
// passed: one concrete transfer per firing, then the schedule advances one
// frequency step. The firing reference is derived from the template id and
// the slot time, so a double firing of the same slot is rejected by the
// ledger's uniqueness constraint instead of moving money twice.
func (uc *TransferUseCase) FireDueRecurring(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := uc.recurringRepo.ListDue(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	fired := 0

	for _, recurring := range due {
		if !recurring.Due(now) {
			continue
		}

		slot := recurring.NextExecutionAt

		transfer := &domain.Transfer{
			ID:              uc.idGen.Generate(),
			SourceAccountID: recurring.SourceAccountID,
			DestinationID:   recurring.DestinationID,
			Amount:          recurring.Amount,
			Currency:        recurring.Currency,
			Status:          domain.TransferStatusPending,
			Type:            domain.TransferTypeRecurring,
			Description:     recurring.Description,
			Reference:       fmt.Sprintf("%s:%d", recurring.ID, slot.Unix()),
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		if err := uc.transferRepo.Create(ctx, nil, transfer); err != nil {
			uc.logger.Error().Err(err).Str("recurring_id", recurring.ID).Msg("failed to create recurring firing")
			continue
		}

		uc.recordCreated(transfer.Type)

		if _, err := uc.execute(ctx, transfer); err != nil {
			uc.logger.Warn().Err(err).Str("recurring_id", recurring.ID).Str("transfer_id", transfer.ID).Msg("recurring firing failed")
		} else {
			fired++
		}

		// The schedule advances whether or not the firing succeeded; a
		// failed slot is recorded as a FAILED transfer, not retried.
		recurring.Advance()

		if err := uc.recurringRepo.UpdateSchedule(ctx, recurring.ID, recurring.NextExecutionAt, now); err != nil {
			return fired, err
		}
	}

	return fired, nil
}

func (uc *TransferUseCase) newTransfer(input CreateTransferInput, transferType domain.TransferType, status domain.TransferStatus, executeAt *time.Time) (*domain.Transfer, error) {
	now := time.Now().UTC()

	transfer := &domain.Transfer{
		ID:              uc.idGen.Generate(),
		SourceAccountID: input.SourceAccountID,
		DestinationID:   input.DestinationID,
		Amount:          money.Normalize(input.Amount),
		Currency:        input.Currency,
		Status:          status,
		Type:            transferType,
		Description:     input.Description,
		Reference:       input.Reference,
		ExecuteAt:       executeAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if transfer.Reference == "" {
		transfer.Reference = transfer.ID
	}

	if err := transfer.Validate(); err != nil {
		return nil, err
	}

	return transfer, nil
}

func (uc *TransferUseCase) execute(ctx context.Context, transfer *domain.Transfer) (*domain.Transfer, error) {
	return uc.executeAs(ctx, transfer, domain.TransactionTypeTransfer)
}

func (uc *TransferUseCase) recordCreated(transferType domain.TransferType) {
	if uc.metrics != nil {
		uc.metrics.TransfersCreated.WithLabelValues(string(transferType)).Inc()
	}
}

// executeAs posts the transfer's journal entry and settles the final
// status. kind tags the projected transaction rows (transfer for normal
// movement, compensation for reversals).
//
// The PENDING -> COMPLETED transition rides inside the posting transaction
// via the Settle hook, so the entry and the status commit together. A
// concurrent cancel that wins the guarded status write aborts the posting
// before commit: a CANCELLED transfer can never have moved money, and a
// crash mid-execution leaves the transfer PENDING with nothing posted.
func (uc *TransferUseCase) executeAs(ctx context.Context, transfer *domain.Transfer, kind domain.TransactionType) (*domain.Transfer, error) {
	now := time.Now().UTC()

	_, postErr := uc.ledger.PostEntry(ctx, PostEntryInput{
		Reference:   transfer.Reference,
		Description: transfer.Description,
		Lines: []LineInput{
			{AccountID: transfer.SourceAccountID, Type: domain.LineTypeDebit, Amount: transfer.Amount, Currency: transfer.Currency, Kind: kind, Description: transfer.Description},
			{AccountID: transfer.DestinationID, Type: domain.LineTypeCredit, Amount: transfer.Amount, Currency: transfer.Currency, Kind: kind, Description: transfer.Description},
		},
		Settle: func(ctx context.Context, tx Transaction) error {
			err := uc.transferRepo.UpdateStatus(ctx, tx, transfer.ID, domain.TransferStatusPending, domain.TransferStatusCompleted, "", now)
			if errors.Is(err, domain.ErrVersionConflict) {
				// Not a version conflict to the retry loop: the transfer
				// itself moved, so re-posting can never succeed.
				return errSettlementLost
			}

			return err
		},
	})

	if errors.Is(postErr, errSettlementLost) {
		current, err := uc.transferRepo.GetByID(ctx, transfer.ID)
		if err != nil {
			return nil, err
		}

		return nil, &domain.InvalidStateTransitionError{
			TransferID: transfer.ID,
			From:       current.Status,
			To:         domain.TransferStatusCompleted,
		}
	}

	if postErr != nil {
		if err := transfer.TransitionTo(domain.TransferStatusFailed); err != nil {
			return nil, err
		}

		transfer.FailureReason = postErr.Error()
		transfer.UpdatedAt = now

		if err := uc.transferRepo.UpdateStatus(ctx, nil, transfer.ID, domain.TransferStatusPending, domain.TransferStatusFailed, postErr.Error(), now); err != nil {
			uc.logger.Error().Err(err).Str("transfer_id", transfer.ID).Msg("failed to mark transfer failed")
		}

		if uc.metrics != nil {
			uc.metrics.TransfersFailed.Inc()
		}

		return nil, postErr
	}

	if err := transfer.TransitionTo(domain.TransferStatusCompleted); err != nil {
		return nil, err
	}

	transfer.UpdatedAt = now

	if uc.metrics != nil {
		uc.metrics.TransfersCompleted.Inc()
		uc.metrics.TransferAmount.Observe(transfer.Amount.InexactFloat64())
	}

	if uc.notifier != nil {
		uc.notifier.Enqueue(domain.NewTransferCommand(
			transfer.SourceAccountID, transfer.DestinationID, transfer.Amount, transfer.Currency, transfer.Reference))
	}

	return transfer, nil
}
