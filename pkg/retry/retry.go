// Package retry implements a bounded retry loop with exponential backoff.
// It carries no payment semantics so the policy can be tested on its own and
// reused by any outbound call site.
package retry

import (
	"context"
	"time"
)

// Func performs one attempt. It returns ok=true to stop with success, or
// ok=false to request another attempt. A returned error is swallowed and
// retried on non-final attempts; on the final attempt it propagates to the
// caller of Do, since the outcome of the underlying call is unknown.
type Func func(ctx context.Context, attempt int) (ok bool, err error)

// Policy describes how attempts are scheduled. The delay before retry n is
// BaseDelay doubled n-1 times (1x, 2x, 4x, ...). There is no jitter and no
// circuit breaker: a down endpoint is retried at the same cadence by every
// caller.
type Policy struct {
	// MaxAttempts bounds the total number of attempts, defaulting to 3.
	MaxAttempts int
	// BaseDelay is the wait before the first retry, defaulting to 1s.
	BaseDelay time.Duration
	// Retryable decides whether an attempt error is worth retrying. A nil
	// predicate treats every error as retryable.
	Retryable func(error) bool

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Do runs fn under the policy. The boolean result reports whether any attempt
// succeeded; a non-nil error means the final attempt failed with a fault (or
// a non-retryable error aborted the loop early).
func (p Policy) Do(ctx context.Context, fn Func) (bool, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	delay := base
	for attempt := 1; attempt <= attempts; attempt++ {
		ok, err := fn(ctx, attempt)
		if ok && err == nil {
			return true, nil
		}
		if err != nil {
			if attempt == attempts {
				return false, err
			}
			if p.Retryable != nil && !p.Retryable(err) {
				return false, err
			}
		}
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return false, err
		}
		delay *= 2
	}
	return false, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
