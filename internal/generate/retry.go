// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"fmt"
	"math"
	"time"
)

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = 2 * time.Second

type retryBackend struct {
	backend    Backend
	maxRetries int
}

// WithRetry wraps b so that transient failures (quota, network, model
// availability) are retried up to maxRetries times with exponential
// backoff. Credential and unknown failures are returned at once.
func WithRetry(b Backend, maxRetries int) Backend {
	if maxRetries <= 0 {
		return b
	}
	return &retryBackend{backend: b, maxRetries: maxRetries}
}

func (r *retryBackend) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", classified(ctx.Err())
			case <-time.After(backoff):
			}
		}

		text, err := r.backend.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !Classify(err).Transient() {
			return "", classified(err)
		}
	}
	return "", classified(fmt.Errorf("after %d retries: %w", r.maxRetries, lastErr))
}
