// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the source adapters
// and the planner: single-shot GET with typed failure classification,
// and caller-side backoff. Adapters never retry; retry policy belongs
// to the planner.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Typed fetch failures. Callers branch with errors.Is.
var (
	ErrRateLimited = errors.New("rate limited")
	ErrNotFound    = errors.New("not found")
	ErrTimeout     = errors.New("timeout")
	ErrMalformed   = errors.New("malformed response")
)

// Get issues a single GET and classifies the outcome. Non-2xx statuses
// drain and close the body and return a typed error. The caller owns
// the body on success.
func Get(ctx context.Context, client *http.Client, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("GET %s: %w", url, ErrTimeout)
		}
		var te interface{ Timeout() bool }
		if errors.As(err, &te) && te.Timeout() {
			return nil, fmt.Errorf("GET %s: %w", url, ErrTimeout)
		}
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}

	if terr := StatusError(resp.StatusCode); terr != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: HTTP %d: %w", url, resp.StatusCode, terr)
	}
	return resp, nil
}

// StatusError maps an HTTP status to a typed failure; 2xx maps to nil.
// 503 counts as rate limiting because the reference APIs use it for
// load shedding.
func StatusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable:
		return ErrRateLimited
	case code == http.StatusNotFound || code == http.StatusGone:
		return ErrNotFound
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ErrTimeout
	default:
		return fmt.Errorf("unexpected status")
	}
}

// DecodeJSON decodes r into v, tagging parse failures as ErrMalformed.
func DecodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
