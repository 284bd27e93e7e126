// Package retry re-invokes fallible operations with exponential backoff.
// The executor holds no shared state, so one Policy value can be reused
// concurrently across independent keys and resources.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/finsight-labs/research-gateway/internal/faults"
)

// Policy configures the retry executor.
type Policy struct {
	// MaxAttempts is the total number of invocations, including the first.
	MaxAttempts int
	// BaseDelay seeds the backoff schedule: min(BaseDelay*2^(n-1), MaxDelay).
	BaseDelay time.Duration
	// MaxDelay caps the backoff between attempts.
	MaxDelay time.Duration
	// Jitter randomises each delay in [delay/2, delay) to avoid lockstep
	// retries from concurrent callers.
	Jitter bool
	// Retryable classifies an error as worth another attempt. Nil means
	// faults.IsTransient.
	Retryable func(error) bool
}

// DefaultPolicy mirrors the application defaults: 3 attempts, 2s..10s backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	if p.Retryable == nil {
		p.Retryable = faults.IsTransient
	}
	return p
}

// ExhaustedError reports the final failure of a retried operation together
// with how many attempts were made and how long they took.
type ExhaustedError struct {
	Attempts int
	Elapsed  time.Duration
	Err      error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %d attempt(s) over %s: %v", e.Attempts, e.Elapsed.Round(time.Millisecond), e.Err)
}

// Unwrap exposes the final attempt's error so classification survives.
func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do invokes op until it succeeds, the error is classified non-retryable,
// attempts run out, or ctx is cancelled mid-backoff. Failures are returned
// wrapped in *ExhaustedError; the cause remains reachable via errors.Is/As.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()
	start := time.Now()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.delay(attempt-1)); err != nil {
				return zero, &ExhaustedError{Attempts: attempt - 1, Elapsed: time.Since(start), Err: err}
			}
		}

		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !p.Retryable(err) {
			return zero, &ExhaustedError{Attempts: attempt, Elapsed: time.Since(start), Err: err}
		}
	}

	return zero, &ExhaustedError{Attempts: p.MaxAttempts, Elapsed: time.Since(start), Err: lastErr}
}

// delay computes the backoff before attempt n+1 (n >= 1 completed attempts).
func (p Policy) delay(n int) time.Duration {
	d := p.BaseDelay << (n - 1)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	if p.Jitter && d > 1 {
		d = d/2 + time.Duration(rand.Int63n(int64(d/2)))
	}
	return d
}

// sleep blocks for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
