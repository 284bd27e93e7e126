package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finsight-labs/research-gateway/internal/faults"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
		calls++
		return 7, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 7 || calls != 1 {
		t.Errorf("v=%d calls=%d", v, calls)
	}
}

func TestRetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", faults.Transient(errors.New("timeout"))
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" || calls != 3 {
		t.Errorf("v=%q calls=%d", v, calls)
	}
}

func TestExhaustion(t *testing.T) {
	calls := 0
	cause := errors.New("rate limited")
	_, err := Do(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
		calls++
		return 0, faults.Transient(cause)
	})
	if calls != 3 {
		t.Fatalf("operation invoked %d times, want 3", calls)
	}
	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("expected *ExhaustedError, got %T: %v", err, err)
	}
	if ex.Attempts != 3 {
		t.Errorf("Attempts=%d, want 3", ex.Attempts)
	}
	if !errors.Is(err, cause) {
		t.Error("cause must remain reachable through the exhaustion error")
	}
}

func TestPermanentNotRetried(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), func(context.Context) (int, error) {
		calls++
		return 0, faults.Permanent(errors.New("bad symbol"))
	})
	if calls != 1 {
		t.Fatalf("permanent error retried: %d calls", calls)
	}
	var ex *ExhaustedError
	if !errors.As(err, &ex) || ex.Attempts != 1 {
		t.Fatalf("expected ExhaustedError with 1 attempt, got %v", err)
	}
	if !faults.IsPermanent(err) {
		t.Error("permanent classification must survive wrapping")
	}
}

func TestDeadlineAbortsBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: time.Second}
	calls := 0
	start := time.Now()
	_, err := Do(ctx, p, func(context.Context) (int, error) {
		calls++
		return 0, faults.Transient(errors.New("flaky"))
	})
	if calls != 1 {
		t.Fatalf("expected deadline to stop further attempts, calls=%d", calls)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline classification, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("executor kept sleeping past the deadline: %v", elapsed)
	}
}

func TestDelaySchedule(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}.normalized()
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := p.delay(i + 1); got != w {
			t.Errorf("delay(%d)=%v, want %v", i+1, got, w)
		}
	}
}

func TestJitterStaysBounded(t *testing.T) {
	p := Policy{MaxAttempts: 2, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Jitter: true}.normalized()
	for i := 0; i < 100; i++ {
		d := p.delay(1)
		if d < 50*time.Millisecond || d >= 100*time.Millisecond {
			t.Fatalf("jittered delay %v out of [50ms,100ms)", d)
		}
	}
}
