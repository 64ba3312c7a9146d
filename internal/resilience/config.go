package resilience

import (
	"context"
	"errors"
	"time"
)

// Policy combines retries with a circuit breaker for one downstream service.
type Policy struct {
	Retry   RetryConfig
	Breaker *Breaker
}

// NewPolicy builds a Policy from configuration values. Non-positive values
// keep the defaults.
func NewPolicy(name string, maxAttempts, initialBackoffMs, maxBackoffMs int, multiplier, jitterFraction float64, failureThreshold, resetTimeoutSecs int) *Policy {
	retry := DefaultRetryConfig()
	if maxAttempts > 0 {
		retry.MaxAttempts = maxAttempts
	}
	if initialBackoffMs > 0 {
		retry.InitialBackoff = time.Duration(initialBackoffMs) * time.Millisecond
	}
	if maxBackoffMs > 0 {
		retry.MaxBackoff = time.Duration(maxBackoffMs) * time.Millisecond
	}
	if multiplier > 0 {
		retry.Multiplier = multiplier
	}
	if jitterFraction >= 0 {
		retry.JitterFraction = jitterFraction
	}

	breaker := DefaultBreakerConfig(name)
	if failureThreshold > 0 {
		breaker.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		breaker.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return &Policy{Retry: retry, Breaker: NewBreaker(breaker)}
}

// Run calls fn through the breaker, retrying transient failures. An open
// circuit is never retried.
func Run[T any](ctx context.Context, p *Policy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	if p == nil {
		return fn(ctx)
	}
	retry := p.Retry
	shouldRetry := retry.normalized().ShouldRetry
	retry.ShouldRetry = func(err error) bool {
		return !errors.Is(err, ErrCircuitOpen) && shouldRetry(err)
	}
	if retry.OnRetry == nil {
		retry.OnRetry = LogRetries(operation)
	}
	return DoVal(ctx, retry, func(ctx context.Context) (T, error) {
		if p.Breaker == nil {
			return fn(ctx)
		}
		return Call(ctx, p.Breaker, fn)
	})
}
