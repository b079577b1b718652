package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDo_AlwaysFailingIsCalledMaxAttemptsTimes(t *testing.T) {
	var delays []time.Duration
	policy := Policy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, sleep: recordingSleep(&delays)}

	calls := 0
	ok, err := policy.Do(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		assert.Equal(t, calls, attempt)
		return false, nil
	})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, delays)
}

func TestDo_DoublingSchedule(t *testing.T) {
	var delays []time.Duration
	policy := Policy{MaxAttempts: 5, BaseDelay: time.Second, sleep: recordingSleep(&delays)}

	ok, err := policy.Do(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		return false, nil
	})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
	}, delays)
}

func TestDo_SuccessShortCircuits(t *testing.T) {
	var delays []time.Duration
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Second, sleep: recordingSleep(&delays)}

	calls := 0
	ok, err := policy.Do(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return true, nil
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestDo_FaultSwallowedUntilFinalAttempt(t *testing.T) {
	var delays []time.Duration
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, sleep: recordingSleep(&delays)}

	fault := errors.New("connection reset")
	calls := 0
	ok, err := policy.Do(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, fault
	})

	assert.False(t, ok)
	assert.ErrorIs(t, err, fault)
	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2)
}

func TestDo_FaultOnMiddleAttemptThenSuccess(t *testing.T) {
	var delays []time.Duration
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, sleep: recordingSleep(&delays)}

	calls := 0
	ok, err := policy.Do(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		if attempt < 3 {
			return false, errors.New("timeout")
		}
		return true, nil
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableErrorAbortsEarly(t *testing.T) {
	var delays []time.Duration
	permanent := errors.New("bad request")
	policy := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, permanent) },
		sleep:       recordingSleep(&delays),
	}

	calls := 0
	ok, err := policy.Do(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, permanent
	})

	assert.False(t, ok)
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	ok, err := policy.Do(ctx, func(ctx context.Context, attempt int) (bool, error) {
		return false, nil
	})

	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_DefaultsApplied(t *testing.T) {
	var delays []time.Duration
	policy := Policy{sleep: recordingSleep(&delays)}

	calls := 0
	ok, err := policy.Do(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, nil
	})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}
