// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testCfg(capacity int, refill float64, acquireTimeout time.Duration) types.SourcesConfig {
	sc := types.SourceConfig{Enabled: true, BucketCapacity: capacity, RefillPerSecond: refill}
	return types.SourcesConfig{
		AcquireTimeout: acquireTimeout,
		Arxiv:          sc,
		OpenAlex:       sc,
	}
}

func TestAcquireBurstWithinCapacity(t *testing.T) {
	l := New(testCfg(3, 0.001, 50*time.Millisecond))

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(context.Background(), "arxiv"))
	}
}

func TestAcquireTimesOutAsRateLimited(t *testing.T) {
	l := New(testCfg(1, 0.001, 30*time.Millisecond))

	require.NoError(t, l.Acquire(context.Background(), "arxiv"))

	// Bucket drained, refill effectively zero: the wait must give up
	// within the acquire timeout and classify as rate limited.
	start := time.Now()
	err := l.Acquire(context.Background(), "arxiv")
	assert.ErrorIs(t, err, httputil.ErrRateLimited)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestAcquireRefill(t *testing.T) {
	l := New(testCfg(1, 50, time.Second))

	require.NoError(t, l.Acquire(context.Background(), "arxiv"))
	// At 50 tokens/s the next token arrives within ~20ms, well inside
	// the acquire timeout.
	require.NoError(t, l.Acquire(context.Background(), "arxiv"))
}

func TestAcquireContextCancellation(t *testing.T) {
	// Refill 0.5/s: the next token is ~2s away, inside the acquire
	// timeout, so the wait is genuinely in progress when cancel fires.
	l := New(testCfg(1, 0.5, 10*time.Second))

	require.NoError(t, l.Acquire(context.Background(), "arxiv"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := l.Acquire(ctx, "arxiv")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, httputil.ErrRateLimited)
}

func TestAcquireUnknownSource(t *testing.T) {
	l := New(testCfg(1, 1, time.Second))

	err := l.Acquire(context.Background(), "unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")
}

func TestDisabledSourceGetsNoBucket(t *testing.T) {
	cfg := testCfg(1, 1, time.Second)
	cfg.OpenAlex.Enabled = false
	l := New(cfg)

	assert.Error(t, l.Acquire(context.Background(), "openalex"))
	assert.NoError(t, l.Acquire(context.Background(), "arxiv"))
}

func TestBucketsAreIndependent(t *testing.T) {
	l := New(testCfg(1, 0.001, 30*time.Millisecond))

	require.NoError(t, l.Acquire(context.Background(), "arxiv"))
	// Draining arxiv must not affect openalex.
	require.NoError(t, l.Acquire(context.Background(), "openalex"))
}

func TestWindowBound(t *testing.T) {
	// Capacity 2, refill 20/s, window 250ms: at most 2 + 20*0.25 = 7
	// grants may complete inside the window.
	cfg := testCfg(2, 20, 60*time.Millisecond)
	l := New(cfg)

	deadline := time.Now().Add(250 * time.Millisecond)
	var granted int64
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				if l.Acquire(context.Background(), "arxiv") == nil {
					atomic.AddInt64(&granted, 1)
				}
			}
		}()
	}
	wg.Wait()

	// Generous slack for scheduler jitter; the point is the bound is
	// near C + R*W, not unbounded.
	assert.LessOrEqual(t, atomic.LoadInt64(&granted), int64(10))
	assert.GreaterOrEqual(t, atomic.LoadInt64(&granted), int64(2))
}

func TestQuotas(t *testing.T) {
	l := New(testCfg(5, 1, time.Second))

	q := l.Quotas()
	require.Contains(t, q, "arxiv")
	require.Contains(t, q, "openalex")
	assert.InDelta(t, 5.0, q["arxiv"], 0.1)

	require.NoError(t, l.Acquire(context.Background(), "arxiv"))
	assert.Less(t, l.Quotas()["arxiv"], 5.0)
}

func TestAllow(t *testing.T) {
	l := New(testCfg(1, 0.001, time.Second))

	assert.True(t, l.Allow("arxiv"))
	assert.False(t, l.Allow("arxiv"))
	assert.False(t, l.Allow("unknown"))
}
