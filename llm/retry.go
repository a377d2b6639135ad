package llm

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures exponential backoff for transient failures.
type RetryPolicy struct {
	MaxRetries        int     // retry attempts beyond the initial call
	BaseDelay         float64 // seconds
	MaxDelay          float64 // seconds
	BackoffMultiplier float64
	Jitter            bool
}

// DefaultRetryPolicy keeps the model call snappy: two retries with a
// one-second base and full jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        2,
		BaseDelay:         1.0,
		MaxDelay:          60.0,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// Delay returns the wait before retry attempt n (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := math.Min(p.BaseDelay*math.Pow(p.BackoffMultiplier, float64(attempt)), p.MaxDelay)
	if p.Jitter {
		delay = delay * (0.5 + rand.Float64()) // [0.5x, 1.5x)
	}
	return time.Duration(delay * float64(time.Second))
}

// Retry runs fn under the policy. Only retryable errors are retried; a
// RateLimitError's Retry-After is honored unless it exceeds MaxDelay, in
// which case the error is returned immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}

	for attempt := 0; attempt < policy.MaxRetries; attempt++ {
		if !IsRetryable(err) {
			return zero, err
		}

		delay := policy.Delay(attempt)
		if rl, ok := err.(*RateLimitError); ok && rl.RetryAfter != nil {
			after := time.Duration(*rl.RetryAfter * float64(time.Second))
			if after > time.Duration(policy.MaxDelay*float64(time.Second)) {
				return zero, err
			}
			delay = after
		}

		select {
		case <-ctx.Done():
			return zero, &AbortError{SDKError: SDKError{Message: "request cancelled during retry", Cause: ctx.Err()}}
		case <-time.After(delay):
		}

		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
	}
	return zero, err
}
