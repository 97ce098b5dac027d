// Package retry implements the bounded retry policy wrapped around every
// outbound API call.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Defaults mirror a 3 attempt exponential schedule of 2s, 4s, capped at 10s.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultMultiplier  = 2.0
)

// Retriable is implemented by errors that know whether they are worth another
// attempt.
type Retriable interface {
	Retriable() bool
}

// DelayHinter is implemented by errors carrying a server supplied wait, such
// as a Retry-After header on a 429 response.
type DelayHinter interface {
	RetryDelay() time.Duration
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy describes how a failing call is retried. The zero value is not
// useful; start from Default.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	// Jitter is the randomization factor passed to the backoff schedule.
	// Zero keeps the schedule deterministic.
	Jitter float64

	// ShouldRetry decides whether err is retriable. Nil falls back to the
	// Retriable interface.
	ShouldRetry func(err error) bool
	// Sleep is replaced in tests to avoid real waits.
	Sleep SleepFunc
	// OnRetry is called before each wait with the attempt that just failed.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Default returns the standard policy.
func Default() *Policy {
	return &Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Multiplier:  DefaultMultiplier,
	}
}

// NoRetry returns a policy performing a single attempt.
func NoRetry() *Policy {
	p := Default()
	p.MaxAttempts = 1
	return p
}

// WithSleep returns a copy of p using sleep.
func (p *Policy) WithSleep(sleep SleepFunc) *Policy {
	cp := *p
	cp.Sleep = sleep
	return &cp
}

// IsRetriable reports whether the policy would retry err.
func (p *Policy) IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if p.ShouldRetry != nil {
		return p.ShouldRetry(err)
	}
	var r Retriable
	return errors.As(err, &r) && r.Retriable()
}

// Do runs fn until it succeeds, fails with a non-retriable error, or the
// attempt ceiling is reached. The last error is returned unchanged.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Do is the value returning form of Policy.Do.
func Do[T any](ctx context.Context, p *Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	if p == nil {
		p = Default()
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	schedule := p.schedule()

	var (
		zero T
		err  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt == attempts || !p.IsRetriable(err) {
			break
		}

		delay := schedule.NextBackOff()
		if delay == backoff.Stop {
			break
		}
		var hint DelayHinter
		if errors.As(err, &hint) && hint.RetryDelay() > delay {
			delay = hint.RetryDelay()
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return zero, serr
		}
	}
	return zero, err
}

// Delays returns the waits the policy would apply between attempts when no
// server hint is present.
func (p *Policy) Delays() []time.Duration {
	schedule := p.schedule()
	var out []time.Duration
	for i := 1; i < p.MaxAttempts; i++ {
		out = append(out, schedule.NextBackOff())
	}
	return out
}

func (p *Policy) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	if b.Multiplier < 1 {
		b.Multiplier = DefaultMultiplier
	}
	b.Reset()
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
