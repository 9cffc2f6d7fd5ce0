// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP client and rate-limit retry shared by
// source downloads and the Claude generation backend.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/pdiddy/notes-engine/pkg/types"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 5 * time.Second

// maxRetryAfter caps a server-provided Retry-After delay.
const maxRetryAfter = 2 * time.Minute

const defaultMaxRetries = 5

// DoWithRetry executes req and retries on HTTP 429 (Too Many Requests).
// The wait is the response's Retry-After seconds when present, otherwise
// RetryBaseDelay doubled per attempt.
//
// When maxRetries is 0 the default (5) is used. After exhausting retries
// the last 429 response is returned so the caller can inspect it. If ctx
// is cancelled during a wait the function returns ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		wait := retryAfter(resp.Header.Get("Retry-After"))
		if wait == 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// retryAfter parses a Retry-After value given in seconds. Dates and
// invalid values yield zero.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter)
}

// NewClient builds an HTTP client from cfg. A non-empty UserAgent is set on
// every request that does not carry one.
func NewClient(cfg types.HTTPConfig) *http.Client {
	var rt http.RoundTripper = http.DefaultTransport
	if cfg.UserAgent != "" {
		rt = &userAgentTransport{base: rt, agent: cfg.UserAgent}
	}
	return &http.Client{Timeout: cfg.Timeout, Transport: rt}
}

type userAgentTransport struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(r)
}
