package retry

import (
	"context"
	"errors"
	"net"
	"time"
)

// State is a position in the retry state machine.
type State int

const (
	// Attempting means an attempt is about to be made.
	Attempting State = iota
	// Backoff means the last attempt failed and another will follow after a delay.
	Backoff
	// Exhausted means no further attempts will be made.
	Exhausted
	// Succeeded means the last attempt succeeded.
	Succeeded
)

func (s State) String() string {
	switch s {
	case Attempting:
		return "attempting"
	case Backoff:
		return "backoff"
	case Exhausted:
		return "exhausted"
	case Succeeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// Class says how an error should be treated by the retry loop.
type Class int

const (
	// Permanent errors are never retried.
	Permanent Class = iota
	// Transient errors are retried with exponential backoff.
	Transient
	// Throttled errors are retried after the server-indicated interval.
	Throttled
)

// Classifier is implemented by errors that know their retry class.
type Classifier interface {
	RetryClass() Class
}

// RetryAfterer is implemented by throttling errors that carry a
// server-indicated wait.
type RetryAfterer interface {
	RetryAfter() time.Duration
}

// ClassOf classifies err. Errors implementing Classifier decide for
// themselves; deadline and network timeouts are transient; cancellation
// and everything else is permanent.
func ClassOf(err error) Class {
	if err == nil {
		return Permanent
	}
	if errors.Is(err, context.Canceled) {
		return Permanent
	}
	var c Classifier
	if errors.As(err, &c) {
		return c.RetryClass()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient
	}
	return Permanent
}

// Policy bounds the retry loop.
type Policy struct {
	// MaxAttempts is the attempt ceiling, including the first attempt.
	MaxAttempts int
	// BaseDelay is the first backoff delay for transient errors.
	BaseDelay time.Duration
	// MaxDelay caps every backoff delay.
	MaxDelay time.Duration
	// Multiplier grows the delay between consecutive transient failures.
	Multiplier float64
	// RateLimitDelay is used for throttled errors without a Retry-After hint.
	RateLimitDelay time.Duration
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    5,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       30 * time.Second,
		Multiplier:     2,
		RateLimitDelay: 5 * time.Second,
	}
}

// Decision is the outcome of one transition.
type Decision struct {
	State State
	Delay time.Duration
}

// Next is the transition function. attempt is the number of attempts made
// so far (1 after the first) and err the result of the latest one. It is
// pure: the same inputs always give the same decision.
func (p Policy) Next(attempt int, err error) Decision {
	if err == nil {
		return Decision{State: Succeeded}
	}

	class := ClassOf(err)
	if class == Permanent || attempt >= p.maxAttempts() {
		return Decision{State: Exhausted}
	}

	if class == Throttled {
		var ra RetryAfterer
		if errors.As(err, &ra) && ra.RetryAfter() > 0 {
			return Decision{State: Backoff, Delay: p.clamp(ra.RetryAfter())}
		}
		return Decision{State: Backoff, Delay: p.clamp(p.RateLimitDelay)}
	}

	return Decision{State: Backoff, Delay: p.backoff(attempt)}
}

func (p Policy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// backoff returns BaseDelay * Multiplier^(attempt-1), capped at MaxDelay.
func (p Policy) backoff(attempt int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= mult
		if p.MaxDelay > 0 && delay >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	return p.clamp(time.Duration(delay))
}

func (p Policy) clamp(d time.Duration) time.Duration {
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
