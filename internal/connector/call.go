package connector

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/teemow/connectorhub/internal/retry"
)

// Caller runs the remote calls of one service client: every attempt waits on
// the rate limiter, failures are classified into the error taxonomy, and the
// retry policy decides whether to try again.
type Caller struct {
	Service  string
	Retry    *retry.Policy
	Limiter  *rate.Limiter
	Observer Observer
	Logger   *slog.Logger
}

// NewCaller returns a caller with the default retry policy and the service's
// default rate limit.
func NewCaller(service string) *Caller {
	return &Caller{
		Service: service,
		Retry:   retry.Default(),
		Limiter: NewLimiter(service),
		Logger:  slog.Default(),
	}
}

// Call runs fn under c. A nil c runs fn once with classification only.
func Call[T any](ctx context.Context, c *Caller, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if c == nil {
		v, err := fn(ctx)
		return v, Classify(err)
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := retry.NoRetry()
	if c.Retry != nil {
		p := *c.Retry
		policy = &p
	}
	hook := policy.OnRetry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warn("retrying request",
			slog.String("service", c.Service),
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))
		if c.Observer != nil {
			c.Observer.ObserveRetry(ctx, c.Service, op, attempt)
		}
		if hook != nil {
			hook(attempt, delay, err)
		}
	}

	start := time.Now()
	v, err := retry.Do(ctx, policy, func(ctx context.Context) (T, error) {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				var zero T
				return zero, err
			}
		}
		v, err := fn(ctx)
		return v, Classify(err)
	})
	if c.Observer != nil {
		c.Observer.ObserveCall(ctx, c.Service, op, err, time.Since(start))
	}
	return v, err
}

// Exec is Call for operations without a result.
func Exec(ctx context.Context, c *Caller, op string, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, c, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
