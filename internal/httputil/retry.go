// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"math"
	"time"
)

const defaultMaxRetries = 3

// Retry runs fn, retrying with exponential backoff while it fails with
// ErrRateLimited. The delay starts at base and doubles each attempt.
// ErrTimeout is retried exactly once; every other failure returns
// immediately. When maxRetries is 0 the default (3) is used. If the
// context is cancelled during a backoff wait the function returns
// ctx.Err(). After exhausting retries the last error is returned.
func Retry(ctx context.Context, maxRetries int, base time.Duration, fn func(context.Context) error) error {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	timeoutRetried := false
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		switch {
		case errors.Is(err, ErrRateLimited):
			if attempt >= maxRetries {
				return err
			}
		case errors.Is(err, ErrTimeout):
			if timeoutRetried {
				return err
			}
			timeoutRetried = true
		default:
			return err
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * base
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}
