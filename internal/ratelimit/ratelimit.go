// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit enforces per-source token buckets. Every fetch
// acquires a token for its source before touching the network, so a
// burst-heavy session degrades to the configured steady rate instead of
// hammering the reference APIs. See docs/ARCHITECTURE.md § Rate Limiter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Limiter holds one token bucket per enabled source. The bucket map is
// fixed at construction, so lookups need no locking; x/time/rate
// serializes waiters in FIFO order internally.
type Limiter struct {
	acquireTimeout time.Duration
	buckets        map[string]*rate.Limiter
}

// New builds buckets for every enabled source in cfg. Capacity below 1
// and non-positive refill rates are clamped to 1.
func New(cfg types.SourcesConfig) *Limiter {
	l := &Limiter{
		acquireTimeout: cfg.AcquireTimeout,
		buckets:        make(map[string]*rate.Limiter),
	}
	l.add("arxiv", cfg.Arxiv)
	l.add("openalex", cfg.OpenAlex)
	l.add("semantic_scholar", cfg.SemanticScholar)
	l.add("crossref", cfg.Crossref)
	l.add("pubmed", cfg.PubMed)
	return l
}

func (l *Limiter) add(name string, sc types.SourceConfig) {
	if !sc.Enabled {
		return
	}
	capacity := sc.BucketCapacity
	if capacity < 1 {
		capacity = 1
	}
	refill := sc.RefillPerSecond
	if refill <= 0 {
		refill = 1
	}
	l.buckets[name] = rate.NewLimiter(rate.Limit(refill), capacity)
}

// Acquire blocks until a token for src is available, the acquire timeout
// expires, or ctx is cancelled. A timed-out wait fails with ErrRateLimited
// so the caller's retry policy applies; cancellation returns ctx.Err().
func (l *Limiter) Acquire(ctx context.Context, src string) error {
	bucket, ok := l.buckets[src]
	if !ok {
		return fmt.Errorf("ratelimit: unknown source %q", src)
	}

	wctx := ctx
	if l.acquireTimeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, l.acquireTimeout)
		defer cancel()
	}

	if err := bucket.Wait(wctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ratelimit: source %q: %w", src, httputil.ErrRateLimited)
	}
	return nil
}

// Allow reports whether a token is immediately available for src,
// consuming it when so. Unknown sources report false.
func (l *Limiter) Allow(src string) bool {
	bucket, ok := l.buckets[src]
	if !ok {
		return false
	}
	return bucket.Allow()
}

// Quotas snapshots the approximate remaining tokens per source, for
// status display.
func (l *Limiter) Quotas() map[string]float64 {
	out := make(map[string]float64, len(l.buckets))
	for name, bucket := range l.buckets {
		out[name] = bucket.Tokens()
	}
	return out
}
