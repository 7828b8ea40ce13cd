// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import "github.com/pdiddy/deep-research/internal/httputil"

// Typed failures shared by every adapter, re-exported from httputil so
// callers can branch with errors.Is without importing the HTTP layer.
// The retry policy for each class lives in the planner, never here.
var (
	// ErrRateLimited marks a refused or budgeted-out request. Retryable
	// with backoff.
	ErrRateLimited = httputil.ErrRateLimited

	// ErrNotFound marks an entity absent from a source. Terminal for that
	// query; other sources may still know the work.
	ErrNotFound = httputil.ErrNotFound

	// ErrTimeout marks a request that exceeded its deadline. Retryable once.
	ErrTimeout = httputil.ErrTimeout

	// ErrMalformed marks an unparseable response body. Not retryable.
	ErrMalformed = httputil.ErrMalformed
)
