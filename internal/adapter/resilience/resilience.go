// Package resilience guards calls to remote services with a client-side rate
// limit, a circuit breaker and bounded exponential backoff, applied in that
// order on every attempt.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

type Policy struct {
	// Timeout bounds each attempt. Zero disables it.
	Timeout         time.Duration
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// RateLimit is in requests per second. Zero or less means unlimited.
	RateLimit float64
	Burst     int
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

type Guard struct {
	name    string
	policy  Policy
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func NewGuard(name string, p Policy) *Guard {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.FailureThreshold == 0 {
		p.FailureThreshold = 5
	}

	g := &Guard{name: name, policy: p}
	if p.RateLimit > 0 {
		burst := p.Burst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(p.RateLimit), burst)
	}

	threshold := p.FailureThreshold
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: p.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A caller giving up says nothing about the remote service.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return g
}

// State reports the breaker state, mainly for diagnostics.
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

func (g *Guard) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if g.policy.InitialInterval > 0 {
		exp.InitialInterval = g.policy.InitialInterval
	}
	if g.policy.MaxInterval > 0 {
		exp.MaxInterval = g.policy.MaxInterval
	}
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(g.policy.MaxAttempts-1)), ctx)
}

// Do runs op under g. Cancellation of ctx, rate limiter refusals and an open
// breaker end the loop without further attempts.
func Do[T any](ctx context.Context, g *Guard, op func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		var zero T

		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return zero, backoff.Permanent(err)
			}
		}

		res, err := g.breaker.Execute(func() (interface{}, error) {
			callCtx := ctx
			if g.policy.Timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, g.policy.Timeout)
				defer cancel()
			}
			return op(callCtx)
		})
		if err != nil {
			if ctx.Err() != nil ||
				errors.Is(err, gobreaker.ErrOpenState) ||
				errors.Is(err, gobreaker.ErrTooManyRequests) {
				return zero, backoff.Permanent(err)
			}
			return zero, err
		}

		v, _ := res.(T)
		return v, nil
	}

	notify := func(err error, delay time.Duration) {
		slog.WarnContext(ctx, "retrying external call",
			"name", g.name, "attempt", attempt, "delay", delay, "error", err)
	}

	return backoff.RetryNotifyWithData(operation, g.newBackOff(ctx), notify)
}
