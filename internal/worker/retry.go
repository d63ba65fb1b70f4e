// Package worker drives concurrent pricing pipelines in bounded chunks with
// per-row retry and batched log writeback.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/fairyhunter13/plati-repricer/internal/model"
	"github.com/fairyhunter13/plati-repricer/internal/obs"
)

// Class tags a failure for the retry loop.
type Class int

const (
	// ClassRetryable failures are retried with exponential backoff.
	ClassRetryable Class = iota
	// ClassFatal failures abort the current row only.
	ClassFatal
)

// Classify maps an error to its retry class. Connectivity failures and the
// downstream queue-limit signal are retryable; validation errors, API
// rejections, and not-found conditions are fatal to the row.
func Classify(err error) Class {
	var (
		conn *model.ConnectivityError
		rate *model.RateLimitError
	)
	if errors.As(err, &conn) || errors.As(err, &rate) {
		return ClassRetryable
	}
	return ClassFatal
}

// RetryPolicy bounds the shared retry loop.
type RetryPolicy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy mirrors the configured defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     4,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retry runs op under the policy. Classification happens here, once, so
// business code never branches on error types for retry decisions.
func retry[T any](ctx context.Context, policy RetryPolicy, op func() (T, error)) (T, error) {
	wrapped := func() (T, error) {
		v, err := op()
		if err != nil {
			if Classify(err) == ClassFatal {
				return v, backoff.Permanent(err)
			}
			obs.RetryAttempts.Inc()
		}
		return v, err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = policy.InitialInterval
	eb.MaxInterval = policy.MaxInterval

	return backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(policy.MaxAttempts),
	)
}
