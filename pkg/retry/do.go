package retry

import (
	"context"
	"time"
)

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Observer is told about every backoff before the loop sleeps.
type Observer func(attempt int, err error, delay time.Duration)

// Do runs op until it succeeds, fails permanently or the policy's attempt
// ceiling is reached. It returns the number of attempts made and the last
// error. Cancellation of ctx stops the loop between attempts and during
// backoff; the context error is returned as is.
func Do(ctx context.Context, p Policy, sleep SleepFunc, observe Observer, op func(ctx context.Context, attempt int) error) (int, error) {
	if sleep == nil {
		sleep = Sleep
	}

	state := Attempting
	attempt := 0
	var lastErr error
	var delay time.Duration

	for {
		switch state {
		case Attempting:
			if err := ctx.Err(); err != nil {
				return attempt, err
			}
			attempt++
			lastErr = op(ctx, attempt)
			if lastErr != nil && ctx.Err() != nil {
				// The failure was caused by cancellation, not by the server.
				return attempt, ctx.Err()
			}
			decision := p.Next(attempt, lastErr)
			state, delay = decision.State, decision.Delay
		case Backoff:
			if observe != nil {
				observe(attempt, lastErr, delay)
			}
			if err := sleep(ctx, delay); err != nil {
				return attempt, err
			}
			state = Attempting
		case Succeeded:
			return attempt, nil
		case Exhausted:
			return attempt, lastErr
		default:
			return attempt, lastErr
		}
	}
}
