package usecase

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/infrastructure/metrics"
)

// MirrorNotifier forwards committed ledger movements to the external ledger
// mirror. Delivery is fire-and-forget with bounded retries: Enqueue never
// blocks the posting path, and a command that exhausts its retries is
// logged and dropped. The local ledger is the source of truth; mirror
// failures are never allowed to fail or roll back a committed operation.
type MirrorNotifier struct {
	publisher  MirrorPublisher
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	queue      chan domain.MirrorCommand
	maxRetries uint64
	interval   time.Duration
}

// MirrorConfig configures a MirrorNotifier.
type MirrorConfig struct {
	Publisher  MirrorPublisher
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
	QueueSize  int
	MaxRetries uint64
	// Interval is the initial backoff between publish retries.
	Interval time.Duration
}

// NewMirrorNotifier creates a MirrorNotifier.
func NewMirrorNotifier(cfg MirrorConfig) *MirrorNotifier {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}

	return &MirrorNotifier{
		publisher:  cfg.Publisher,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		queue:      make(chan domain.MirrorCommand, cfg.QueueSize),
		maxRetries: cfg.MaxRetries,
		interval:   cfg.Interval,
	}
}

// Enqueue hands a command to the delivery worker without blocking. When the
// queue is full the command is dropped and logged; the mirror is eventually
// reconciled from the journal, never the other way around.
func (n *MirrorNotifier) Enqueue(cmd domain.MirrorCommand) {
	select {
	case n.queue <- cmd:
	default:
		if n.metrics != nil {
			n.metrics.MirrorDropped.Inc()
		}
		n.logger.Warn().
			Str("kind", string(cmd.Kind)).
			Str("reference", cmd.Reference).
			Msg("mirror queue full, dropping command")
	}
}

// Start runs the delivery worker until the context is cancelled.
func (n *MirrorNotifier) Start(ctx context.Context) error {
	n.logger.Info().Int("queue_size", cap(n.queue)).Msg("mirror notifier started")

	for {
		select {
		case <-ctx.Done():
			n.logger.Info().Msg("mirror notifier shutting down")
			return ctx.Err()
		case cmd := <-n.queue:
			n.deliver(ctx, cmd)
		}
	}
}

// deliver publishes one command with exponential backoff. Failure after the
// bounded retries is logged, never propagated.
func (n *MirrorNotifier) deliver(ctx context.Context, cmd domain.MirrorCommand) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = n.interval

	err := backoff.Retry(func() error {
		return n.publisher.Publish(ctx, cmd)
	}, backoff.WithContext(backoff.WithMaxRetries(b, n.maxRetries), ctx))

	if err != nil {
		if n.metrics != nil {
			n.metrics.MirrorDropped.Inc()
		}
		n.logger.Error().Err(err).
			Str("kind", string(cmd.Kind)).
			Str("account_id", cmd.AccountID).
			Str("reference", cmd.Reference).
			Msg("mirror delivery failed, dropping command")

		return
	}

	if n.metrics != nil {
		n.metrics.MirrorPublished.Inc()
	}
	n.logger.Debug().
		Str("kind", string(cmd.Kind)).
		Str("reference", cmd.Reference).
		Msg("mirror command delivered")
}
