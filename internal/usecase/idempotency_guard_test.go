package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/corebank/internal/domain"
	"github.com/iho/corebank/internal/infrastructure/metrics"
	"github.com/iho/corebank/internal/usecase"
	"github.com/iho/corebank/internal/usecase/mocks"
)

func TestIdempotencyGuard_RunOnce(t *testing.T) {
	repo := mocks.NewMockIdempotencyRepository()
	guard := usecase.NewIdempotencyGuard(repo, time.Hour)

	calls := 0
	op := func(ctx context.Context) (*usecase.Outcome, error) {
		calls++
		return &usecase.Outcome{StatusCode: 201, Body: []byte(`{"id":"txn-1"}`)}, nil
	}

	outcome, replayed, err := guard.Run(context.Background(), "key-1", "/deposits", op)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 201, outcome.StatusCode)
	assert.Equal(t, 1, calls)

	// The duplicate replays the stored outcome; op never runs again.
	outcome, replayed, err = guard.Run(context.Background(), "key-1", "/deposits", op)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, 201, outcome.StatusCode)
	assert.Equal(t, []byte(`{"id":"txn-1"}`), outcome.Body)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyGuard_MissingKey(t *testing.T) {
	guard := usecase.NewIdempotencyGuard(mocks.NewMockIdempotencyRepository(), time.Hour)

	_, _, err := guard.Run(context.Background(), "", "/deposits", func(ctx context.Context) (*usecase.Outcome, error) {
		t.Fatal("op must not run without a key")
		return nil, nil
	})

	assert.ErrorIs(t, err, domain.ErrMissingIdempotencyKey)
}

func TestIdempotencyGuard_SameKeyDifferentPath(t *testing.T) {
	repo := mocks.NewMockIdempotencyRepository()
	guard := usecase.NewIdempotencyGuard(repo, time.Hour)

	calls := 0
	op := func(ctx context.Context) (*usecase.Outcome, error) {
		calls++
		return &usecase.Outcome{StatusCode: 200}, nil
	}

	_, _, err := guard.Run(context.Background(), "key-1", "/deposits", op)
	require.NoError(t, err)

	// The key is scoped per operation path, not global.
	_, replayed, err := guard.Run(context.Background(), "key-1", "/withdrawals", op)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyGuard_ConcurrentDuplicate(t *testing.T) {
	repo := mocks.NewMockIdempotencyRepository()
	guard := usecase.NewIdempotencyGuard(repo, time.Hour)

	// Simulate a claim that exists but has no stored outcome yet: the
	// first request is still in flight.
	claimed, _, err := repo.Claim(context.Background(), "key-1", "/deposits", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, claimed)

	_, _, err = guard.Run(context.Background(), "key-1", "/deposits", func(ctx context.Context) (*usecase.Outcome, error) {
		t.Fatal("op must not run while the first execution is in flight")
		return nil, nil
	})

	assert.ErrorIs(t, err, domain.ErrConcurrentDuplicate)
}

func TestIdempotencyGuard_FailedOpReleasesClaim(t *testing.T) {
	repo := mocks.NewMockIdempotencyRepository()
	guard := usecase.NewIdempotencyGuard(repo, time.Hour)

	boom := errors.New("boom")

	_, _, err := guard.Run(context.Background(), "key-1", "/deposits", func(ctx context.Context) (*usecase.Outcome, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	// The claim was released, so a retry executes.
	outcome, replayed, err := guard.Run(context.Background(), "key-1", "/deposits", func(ctx context.Context) (*usecase.Outcome, error) {
		return &usecase.Outcome{StatusCode: 201}, nil
	})
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 201, outcome.StatusCode)
}

func TestIdempotencyGuard_Lookup(t *testing.T) {
	repo := mocks.NewMockIdempotencyRepository()
	guard := usecase.NewIdempotencyGuard(repo, time.Hour)

	outcome, err := guard.Lookup(context.Background(), "key-1", "/deposits")
	require.NoError(t, err)
	assert.Nil(t, outcome)

	_, _, err = guard.Run(context.Background(), "key-1", "/deposits", func(ctx context.Context) (*usecase.Outcome, error) {
		return &usecase.Outcome{StatusCode: 200, Body: []byte("ok")}, nil
	})
	require.NoError(t, err)

	outcome, err = guard.Lookup(context.Background(), "key-1", "/deposits")
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, 200, outcome.StatusCode)
}

func TestIdempotencyGuard_PurgeExpired(t *testing.T) {
	repo := mocks.NewMockIdempotencyRepository()
	guard := usecase.NewIdempotencyGuard(repo, time.Hour)

	now := time.Now().UTC()

	// Claim two keys, one well past the TTL.
	claimed, _, err := repo.Claim(context.Background(), "key-old", "/deposits", now.Add(-2*time.Hour))
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, repo.StoreOutcome(context.Background(), "key-old", "/deposits", 200, nil))

	claimed, _, err = repo.Claim(context.Background(), "key-new", "/deposits", now)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, repo.StoreOutcome(context.Background(), "key-new", "/deposits", 200, nil))

	purged, err := guard.PurgeExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	record, err := repo.Get(context.Background(), "key-old", "/deposits")
	require.NoError(t, err)
	assert.Nil(t, record)

	record, err = repo.Get(context.Background(), "key-new", "/deposits")
	require.NoError(t, err)
	assert.NotNil(t, record)
}

func TestIdempotencyGuard_Metrics(t *testing.T) {
	repo := mocks.NewMockIdempotencyRepository()
	m := metrics.NewWith(prometheus.NewRegistry())
	guard := usecase.NewIdempotencyGuard(repo, time.Hour).WithMetrics(m)

	op := func(ctx context.Context) (*usecase.Outcome, error) {
		return &usecase.Outcome{StatusCode: 201}, nil
	}

	_, _, err := guard.Run(context.Background(), "key-1", "/deposits", op)
	require.NoError(t, err)
	_, replayed, err := guard.Run(context.Background(), "key-1", "/deposits", op)
	require.NoError(t, err)
	require.True(t, replayed)

	// A claim without a stored outcome is an in-flight duplicate.
	claimed, _, err := repo.Claim(context.Background(), "key-2", "/deposits", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, claimed)
	_, _, err = guard.Run(context.Background(), "key-2", "/deposits", op)
	require.ErrorIs(t, err, domain.ErrConcurrentDuplicate)

	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.IdempotencyReplays))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.IdempotencyConflict))
}
