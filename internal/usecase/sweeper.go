package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/corebank/internal/infrastructure/metrics"
)

// Sweeper is the periodic collaborator driving time-based work: executing
// scheduled transfers whose time has passed, firing due recurring
// templates, and purging expired idempotency keys. Each firing is
// cooperative: a sweep either completes it fully or leaves the aggregate
// untouched for the next run.
type Sweeper struct {
	transfers *TransferUseCase
	guard     *IdempotencyGuard
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int
}

// SweeperConfig configures a Sweeper.
type SweeperConfig struct {
	Transfers *TransferUseCase
	Guard     *IdempotencyGuard
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
	Interval  time.Duration
	BatchSize int
}

// NewSweeper creates a Sweeper.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSweepInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultSweepBatchSize
	}

	return &Sweeper{
		transfers: cfg.Transfers,
		guard:     cfg.Guard,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
	}
}

// Start runs the sweep loop until the context is cancelled. It sweeps once
// immediately so restarts pick up overdue work without waiting a full
// interval.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.interval).
		Int("batch_size", s.batchSize).
		Msg("sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Failures in one phase are logged and do
// not stop the others; everything left undone is retried next sweep.
func (s *Sweeper) RunOnce(ctx context.Context) {
	now := time.Now().UTC()

	executed, err := s.transfers.ExecuteDueTransfers(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled transfer sweep failed")
	} else if executed > 0 {
		if s.metrics != nil {
			s.metrics.SweepExecuted.Add(float64(executed))
		}
		s.logger.Info().Int("executed", executed).Msg("scheduled transfers executed")
	}

	fired, err := s.transfers.FireDueRecurring(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("recurring transfer sweep failed")
	} else if fired > 0 {
		if s.metrics != nil {
			s.metrics.SweepFired.Add(float64(fired))
		}
		s.logger.Info().Int("fired", fired).Msg("recurring transfers fired")
	}

	if s.guard != nil {
		purged, err := s.guard.PurgeExpired(ctx, now)
		if err != nil {
			s.logger.Error().Err(err).Msg("idempotency key purge failed")
		} else if purged > 0 {
			if s.metrics != nil {
				s.metrics.SweepPurged.Add(float64(purged))
			}
			s.logger.Info().Int64("purged", purged).Msg("expired idempotency keys purged")
		}
	}
}
