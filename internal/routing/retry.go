package routing

import (
	"context"
	"math/rand"
	"time"
)

// Policy is an explicit retry policy: bounded attempts with exponential
// backoff and jitter. It wraps an operation and reports attempt metadata
// instead of hiding the control flow inside a decorator.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
}

// Outcome describes one policy run.
type Outcome struct {
	Attempts int
	Elapsed  time.Duration
	Err      error
}

// Do runs op until it succeeds, fails permanently, exhausts the attempt
// budget, or ctx is done. The retryable predicate decides whether an error
// is worth another attempt. Cancellation between attempts stops scheduling;
// the in-flight attempt itself is op's responsibility.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error, retryable func(error) bool) Outcome {
	start := time.Now()
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return Outcome{Attempts: attempt, Elapsed: time.Since(start)}
		}
		if !retryable(lastErr) || attempt == attempts {
			return Outcome{Attempts: attempt, Elapsed: time.Since(start), Err: lastErr}
		}
		select {
		case <-time.After(p.backoff(attempt)):
		case <-ctx.Done():
			return Outcome{Attempts: attempt, Elapsed: time.Since(start), Err: lastErr}
		}
	}
	return Outcome{Attempts: attempts, Elapsed: time.Since(start), Err: lastErr}
}

// backoff computes base * 2^(attempt-1) with up to ±25% jitter, capped.
// Doubling stops at the ceiling, so deep attempt counts cannot overflow
// the delay.
func (p Policy) backoff(attempt int) time.Duration {
	base := p.Base
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	ceiling := p.Cap
	if ceiling <= 0 {
		ceiling = 30 * time.Second
	}
	if ceiling < base {
		ceiling = base
	}

	delay := base
	for i := 1; i < attempt && delay < ceiling; i++ {
		delay <<= 1
		if delay <= 0 {
			delay = ceiling
			break
		}
	}
	if delay > ceiling {
		delay = ceiling
	}

	jitter := time.Duration(rand.Int63n(int64(delay)/2+1)) - delay/4
	delay += jitter
	if delay < 0 {
		delay = 0
	}
	return delay
}
