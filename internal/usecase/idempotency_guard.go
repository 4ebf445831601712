package usecase

import (
	"context"
	"time"

	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/infrastructure/metrics"
)

// Outcome is the stored result of a mutating operation.
type Outcome struct {
	StatusCode int
	Body       []byte
}

// IdempotencyGuard deduplicates mutating requests and caches their outcome.
// Callers compose it explicitly around the operation, so the
// check-then-call-then-store sequence is visible at every call site:
//
//	outcome, replayed, err := guard.Run(ctx, key, path, op)
//
// The claim is atomic at the storage layer, so two concurrent duplicates
// can never both observe first-seen.
type IdempotencyGuard struct {
	repo    IdempotencyRepository
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewIdempotencyGuard creates a guard. ttl <= 0 falls back to the 7-day
// default.
func NewIdempotencyGuard(repo IdempotencyRepository, ttl time.Duration) *IdempotencyGuard {
	if ttl <= 0 {
		ttl = domain.DefaultIdempotencyTTL
	}

	return &IdempotencyGuard{repo: repo, ttl: ttl}
}

// WithMetrics attaches replay and conflict counters.
func (g *IdempotencyGuard) WithMetrics(m *metrics.Metrics) *IdempotencyGuard {
	g.metrics = m
	return g
}

// Run executes op at most once per (key, path). The first caller claims
// the key, runs op, and stores its outcome; later callers with the same
// pair get the stored outcome back with replayed=true and op never runs
// again. A duplicate arriving while the first execution is still in flight
// fails with domain.ErrConcurrentDuplicate, which callers surface as a
// conflict rather than silently retrying the side effect. An empty key
// fails fast with domain.ErrMissingIdempotencyKey.
//
// When op itself fails, the claim is released so the client may retry;
// only successful outcomes are pinned.
func (g *IdempotencyGuard) Run(ctx context.Context, key, path string, op func(ctx context.Context) (*Outcome, error)) (*Outcome, bool, error) {
	if key == "" {
		return nil, false, domain.ErrMissingIdempotencyKey
	}

	claimed, existing, err := g.repo.Claim(ctx, key, path, time.Now().UTC())
	if err != nil {
		return nil, false, err
	}

	if !claimed {
		if existing == nil || !existing.Completed {
			if g.metrics != nil {
				g.metrics.IdempotencyConflict.Inc()
			}
			return nil, false, domain.ErrConcurrentDuplicate
		}

		if g.metrics != nil {
			g.metrics.IdempotencyReplays.Inc()
		}
		return &Outcome{StatusCode: existing.StatusCode, Body: existing.Response}, true, nil
	}

	outcome, err := op(ctx)
	if err != nil {
		_ = g.repo.Release(ctx, key, path)
		return nil, false, err
	}

	if err := g.repo.StoreOutcome(ctx, key, path, outcome.StatusCode, outcome.Body); err != nil {
		return nil, false, err
	}

	return outcome, false, nil
}

// Lookup returns the stored outcome for (key, path), or nil when the pair
// is unknown or still in flight.
func (g *IdempotencyGuard) Lookup(ctx context.Context, key, path string) (*Outcome, error) {
	record, err := g.repo.Get(ctx, key, path)
	if err != nil {
		return nil, err
	}

	if record == nil || !record.Completed {
		return nil, nil
	}

	return &Outcome{StatusCode: record.StatusCode, Body: record.Response}, nil
}

// PurgeExpired removes keys older than the guard's TTL. Expiry never
// retroactively invalidates outcomes already returned.
func (g *IdempotencyGuard) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return g.repo.PurgeExpired(ctx, now.Add(-g.ttl))
}
