package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func neverRetry(error) bool { return false }

func TestPolicySucceedsFirstAttempt(t *testing.T) {
	policy := Policy{MaxAttempts: 3, Base: time.Millisecond, Cap: 2 * time.Millisecond}

	calls := 0
	outcome := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, func(error) bool { return true })

	require.NoError(t, outcome.Err)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, 1, calls)
}

func TestPolicyExhaustsBudget(t *testing.T) {
	policy := Policy{MaxAttempts: 3, Base: time.Millisecond, Cap: 2 * time.Millisecond}

	calls := 0
	outcome := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return errBoom
	}, func(error) bool { return true })

	require.ErrorIs(t, outcome.Err, errBoom)
	assert.Equal(t, 3, outcome.Attempts, "exactly the configured attempts, no more")
	assert.Equal(t, 3, calls)
}

func TestPolicyStopsOnPermanentError(t *testing.T) {
	policy := Policy{MaxAttempts: 5, Base: time.Millisecond}

	calls := 0
	outcome := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return errBoom
	}, neverRetry)

	require.ErrorIs(t, outcome.Err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestPolicyRecoversMidBudget(t *testing.T) {
	policy := Policy{MaxAttempts: 4, Base: time.Millisecond, Cap: 2 * time.Millisecond}

	calls := 0
	outcome := policy.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	}, func(error) bool { return true })

	require.NoError(t, outcome.Err)
	assert.Equal(t, 3, outcome.Attempts)
}

func TestPolicyStopsSchedulingOnCancel(t *testing.T) {
	policy := Policy{MaxAttempts: 10, Base: 50 * time.Millisecond, Cap: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	outcome := policy.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errBoom
	}, func(error) bool { return true })

	require.ErrorIs(t, outcome.Err, errBoom)
	assert.Equal(t, 1, calls, "no retries scheduled after cancellation")
}

func TestPolicyZeroAttemptsRunsOnce(t *testing.T) {
	policy := Policy{}

	calls := 0
	outcome := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, func(error) bool { return true })

	require.NoError(t, outcome.Err)
	assert.Equal(t, 1, calls)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	policy := Policy{MaxAttempts: 5, Base: 100 * time.Millisecond, Cap: 300 * time.Millisecond}

	for attempt := 1; attempt <= 5; attempt++ {
		delay := policy.backoff(attempt)
		assert.GreaterOrEqual(t, delay, time.Duration(0))
		// cap plus maximum jitter
		assert.LessOrEqual(t, delay, 300*time.Millisecond+150*time.Millisecond)
	}
}

func TestBackoffDeepAttemptsStayBounded(t *testing.T) {
	policy := Policy{MaxAttempts: 64, Base: 250 * time.Millisecond, Cap: 5 * time.Second}

	for attempt := 1; attempt <= 64; attempt++ {
		delay := policy.backoff(attempt)
		assert.GreaterOrEqual(t, delay, time.Duration(0), "attempt %d", attempt)
		// cap plus maximum jitter
		assert.LessOrEqual(t, delay, 5*time.Second+2500*time.Millisecond, "attempt %d", attempt)
	}
}

func TestBackoffWithoutCapStaysBounded(t *testing.T) {
	policy := Policy{MaxAttempts: 128, Base: time.Second}

	for attempt := 1; attempt <= 128; attempt++ {
		delay := policy.backoff(attempt)
		assert.GreaterOrEqual(t, delay, time.Duration(0), "attempt %d", attempt)
		assert.LessOrEqual(t, delay, 30*time.Second+15*time.Second, "attempt %d", attempt)
	}
}
