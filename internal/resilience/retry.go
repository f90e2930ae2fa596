package resilience

import (
	"context"
	"time"
)

// Policy defines retry behavior for one call site. Policies are plain
// values; concurrent callers never share backoff state.
type Policy struct {
	MaxRetries        int           // 0 = exactly one attempt
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	Multiplier        float64
	PerAttemptTimeout time.Duration // 0 = no per-attempt deadline

	// OnRetry observes each retry before its backoff sleep. It must
	// not alter control flow.
	OnRetry func(attempt int, err *AppError)
}

// DefaultPolicy provides sensible defaults for provider calls.
var DefaultPolicy = Policy{
	MaxRetries:   2,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
	Multiplier:   2.0,
}

// Run executes op with bounded retries. Failures are classified; a
// non-retryable failure or an exhausted budget returns the last
// classified *AppError immediately, with no trailing sleep. A
// provider-supplied RetryAfter overrides the computed backoff delay.
func Run[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	delay := policy.InitialDelay
	if policy.MaxDelay > 0 && delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}

	for attempt := 0; ; attempt++ {
		result, err := runAttempt(ctx, policy.PerAttemptTimeout, op)
		if err == nil {
			return result, nil
		}

		appErr := Classify(err)
		if !appErr.Retryable || attempt >= policy.MaxRetries {
			return zero, appErr
		}

		wait := delay
		if appErr.RetryAfter > 0 {
			wait = appErr.RetryAfter
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt+1, appErr)
		}

		select {
		case <-ctx.Done():
			return zero, Classify(ctx.Err())
		case <-time.After(wait):
		}

		delay = nextDelay(delay, policy)
	}
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}

// nextDelay advances the exponential backoff, bounded by MaxDelay.
func nextDelay(current time.Duration, policy Policy) time.Duration {
	next := time.Duration(float64(current) * policy.Multiplier)
	if policy.MaxDelay > 0 && next > policy.MaxDelay {
		next = policy.MaxDelay
	}
	return next
}
