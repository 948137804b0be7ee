package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

type classified struct {
	class Class
	after time.Duration
}

func (c classified) Error() string             { return fmt.Sprintf("class %d", c.class) }
func (c classified) RetryClass() Class         { return c.class }
func (c classified) RetryAfter() time.Duration { return c.after }

func testPolicy() Policy {
	return Policy{
		MaxAttempts:    4,
		BaseDelay:      100 * time.Millisecond,
		MaxDelay:       time.Second,
		Multiplier:     2,
		RateLimitDelay: 250 * time.Millisecond,
	}
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{name: "nil", err: nil, want: Permanent},
		{name: "plain", err: errors.New("bad request"), want: Permanent},
		{name: "canceled", err: context.Canceled, want: Permanent},
		{name: "deadline", err: fmt.Errorf("get: %w", context.DeadlineExceeded), want: Transient},
		{name: "net error", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, want: Transient},
		{name: "classifier transient", err: classified{class: Transient}, want: Transient},
		{name: "classifier throttled wrapped", err: fmt.Errorf("x: %w", classified{class: Throttled}), want: Throttled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassOf(tt.err); got != tt.want {
				t.Errorf("ClassOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPolicyNext(t *testing.T) {
	p := testPolicy()

	tests := []struct {
		name    string
		attempt int
		err     error
		want    Decision
	}{
		{name: "success", attempt: 1, err: nil, want: Decision{State: Succeeded}},
		{name: "permanent", attempt: 1, err: errors.New("nope"), want: Decision{State: Exhausted}},
		{name: "transient first", attempt: 1, err: classified{class: Transient}, want: Decision{State: Backoff, Delay: 100 * time.Millisecond}},
		{name: "transient second", attempt: 2, err: classified{class: Transient}, want: Decision{State: Backoff, Delay: 200 * time.Millisecond}},
		{name: "transient third", attempt: 3, err: classified{class: Transient}, want: Decision{State: Backoff, Delay: 400 * time.Millisecond}},
		{name: "transient at ceiling", attempt: 4, err: classified{class: Transient}, want: Decision{State: Exhausted}},
		{name: "throttled with hint", attempt: 1, err: classified{class: Throttled, after: 700 * time.Millisecond}, want: Decision{State: Backoff, Delay: 700 * time.Millisecond}},
		{name: "throttled hint capped", attempt: 1, err: classified{class: Throttled, after: time.Minute}, want: Decision{State: Backoff, Delay: time.Second}},
		{name: "throttled default", attempt: 2, err: classified{class: Throttled}, want: Decision{State: Backoff, Delay: 250 * time.Millisecond}},
		{name: "throttled at ceiling", attempt: 4, err: classified{class: Throttled}, want: Decision{State: Exhausted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Next(tt.attempt, tt.err); got != tt.want {
				t.Errorf("Next(%d, %v) = %+v, want %+v", tt.attempt, tt.err, got, tt.want)
			}
		})
	}
}

func TestBackoffCappedAtMaxDelay(t *testing.T) {
	p := testPolicy()
	p.MaxAttempts = 100
	if got := p.Next(20, classified{class: Transient}); got.Delay != p.MaxDelay {
		t.Errorf("delay = %v, want %v", got.Delay, p.MaxDelay)
	}
}

func TestZeroPolicyMakesOneAttempt(t *testing.T) {
	if got := (Policy{}).Next(1, classified{class: Transient}); got.State != Exhausted {
		t.Errorf("State = %v, want exhausted", got.State)
	}
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		var slept []time.Duration
		sleep := func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}

		attempts, err := Do(ctx, testPolicy(), sleep, nil, func(_ context.Context, attempt int) error {
			if attempt < 3 {
				return classified{class: Transient}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
		want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
		if fmt.Sprint(slept) != fmt.Sprint(want) {
			t.Errorf("slept = %v, want %v", slept, want)
		}
	})

	t.Run("exhausts the ceiling and returns the last cause", func(t *testing.T) {
		var observed int
		last := classified{class: Throttled, after: time.Millisecond}
		attempts, err := Do(ctx, testPolicy(), func(context.Context, time.Duration) error { return nil },
			func(int, error, time.Duration) { observed++ },
			func(context.Context, int) error { return last })
		if !errors.Is(err, last) {
			t.Fatalf("Do() error = %v, want %v", err, last)
		}
		if attempts != 4 {
			t.Errorf("attempts = %d, want 4", attempts)
		}
		if observed != 3 {
			t.Errorf("observed backoffs = %d, want 3", observed)
		}
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		perm := errors.New("unauthorized")
		attempts, err := Do(ctx, testPolicy(), nil, nil, func(context.Context, int) error { return perm })
		if !errors.Is(err, perm) || attempts != 1 {
			t.Errorf("Do() = %d, %v, want 1, %v", attempts, err, perm)
		}
	})

	t.Run("cancellation during backoff", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		sleep := func(c context.Context, _ time.Duration) error {
			cancel()
			return c.Err()
		}
		attempts, err := Do(cctx, testPolicy(), sleep, nil, func(context.Context, int) error {
			return classified{class: Transient}
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Do() error = %v, want context.Canceled", err)
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("already cancelled context makes no attempt", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		called := false
		attempts, err := Do(cctx, testPolicy(), nil, nil, func(context.Context, int) error {
			called = true
			return nil
		})
		if called || attempts != 0 || !errors.Is(err, context.Canceled) {
			t.Errorf("Do() = %d, %v, called=%v", attempts, err, called)
		}
	})
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() = %v, want context.Canceled", err)
	}
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) = %v", err)
	}
}
