package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Journal metrics
	EntriesPosted   prometheus.Counter
	EntryLines      prometheus.Histogram
	PostingDuration prometheus.Histogram
	PostingErrors   *prometheus.CounterVec
	VersionRetries  prometheus.Counter

	// Transfer metrics
	TransfersCreated   *prometheus.CounterVec
	TransfersCompleted prometheus.Counter
	TransfersFailed    prometheus.Counter
	TransfersCancelled prometheus.Counter
	TransferAmount     prometheus.Histogram

	// Account metrics
	AccountsCreated prometheus.Counter

	// Idempotency metrics
	IdempotencyReplays  prometheus.Counter
	IdempotencyConflict prometheus.Counter

	// Sweeper metrics
	SweepExecuted prometheus.Counter
	SweepFired    prometheus.Counter
	SweepPurged   prometheus.Counter

	// Mirror metrics
	MirrorPublished prometheus.Counter
	MirrorDropped   prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates all metrics on the default Prometheus registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics on the given registry. Tests pass a fresh
// registry so repeated construction never collides.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EntriesPosted: factory.NewCounter(prometheus.CounterOpts{
			Name: "corebank_journal_entries_posted_total",
			Help: "Total number of journal entries posted",
		}),
		EntryLines: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "corebank_journal_entry_lines",
			Help:    "Number of lines per posted journal entry",
			Buckets: []float64{2, 4, 8, 16, 32},
		}),
		PostingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "corebank_posting_duration_seconds",
			Help:    "Duration of journal posting operations",
			Buckets: prometheus.DefBuckets,
		}),
		PostingErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corebank_posting_errors_total",
				Help: "Total number of posting errors by type",
			},
			[]string{"error_type"},
		),
		VersionRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "corebank_version_conflict_retries_total",
			Help: "Total number of optimistic lock retries",
		}),

		TransfersCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corebank_transfers_created_total",
				Help: "Total number of transfers created by type",
			},
			[]string{"type"},
		),
		TransfersCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "corebank_transfers_completed_total",
			Help: "Total number of transfers completed",
		}),
		TransfersFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "corebank_transfers_failed_total",
			Help: "Total number of transfers failed",
		}),
		TransfersCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "corebank_transfers_cancelled_total",
			Help: "Total number of transfers cancelled",
		}),
		TransferAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "corebank_transfer_amount",
			Help:    "Transfer amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),

		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "corebank_accounts_created_total",
			Help: "Total number of accounts created",
		}),

		IdempotencyReplays: factory.NewCounter(prometheus.CounterOpts{
			Name: "corebank_idempotency_replays_total",
			Help: "Total number of requests served from stored outcomes",
		}),
		IdempotencyConflict: factory.NewCounter(prometheus.CounterOpts{
			Name: "corebank_idempotency_conflicts_total",
			Help: "Total number of duplicate requests rejected while in flight",
		}),

		SweepExecuted: factory.NewCounter(prometheus.CounterOpts{
			Name: "corebank_sweep_transfers_executed_total",
			Help: "Total number of scheduled transfers executed by the sweeper",
		}),
		SweepFired: factory.NewCounter(prometheus.CounterOpts{
			Name: "corebank_sweep_recurring_fired_total",
			Help: "Total number of recurring transfers fired by the sweeper",
		}),
		SweepPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "corebank_sweep_idempotency_purged_total",
			Help: "Total number of expired idempotency keys purged",
		}),

		MirrorPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "corebank_mirror_published_total",
			Help: "Total number of commands delivered to the ledger mirror",
		}),
		MirrorDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "corebank_mirror_dropped_total",
			Help: "Total number of mirror commands dropped",
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corebank_http_requests_total",
				Help: "Total HTTP requests by method, path and status",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "corebank_http_request_duration_seconds",
				Help:    "HTTP request duration by method and path",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}
