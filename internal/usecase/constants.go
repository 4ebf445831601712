package usecase

import "time"

const (
	// DefaultMaxOptimisticAttempts bounds the retry loop around
	// version-guarded balance writes.
	DefaultMaxOptimisticAttempts = 3

	// Pagination defaults for history and list queries.
	DefaultPageSize = 20
	MaxPageSize     = 100

	// BalanceCacheTTL is how long a cached balance stays fresh. Posting an
	// entry invalidates the touched accounts immediately.
	BalanceCacheTTL = 30 * time.Second

	// Sweep defaults for scheduled transfers, recurring firings and
	// idempotency-key expiry.
	DefaultSweepInterval  = 30 * time.Second
	DefaultSweepBatchSize = 100
)
