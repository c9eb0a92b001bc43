package resilience

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultMaxRetries is the number of retries after the initial attempt.
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the first retry delay.
	DefaultBaseDelay = 2 * time.Second
	// DefaultMultiplier grows the delay between consecutive retries.
	DefaultMultiplier = 2.0
)

// FailureMode selects what happens when every attempt has failed.
type FailureMode int

const (
	// Raise propagates the last error to the caller.
	Raise FailureMode = iota
	// ReturnDefault swallows the final failure, logs it at warning level, and
	// returns an unsuccessful Outcome with the zero value.
	ReturnDefault
)

// Policy bounds a retried operation.
type Policy struct {
	MaxRetries     int
	BaseDelay      time.Duration
	Multiplier     float64
	OnFinalFailure FailureMode
}

// DefaultPolicy returns the policy applied to media server calls unless the
// caller overrides it.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		Multiplier: DefaultMultiplier,
	}
}

// Outcome is the uniform return contract of every resilient operation.
type Outcome[T any] struct {
	Result    T
	Succeeded bool
}

// Runner executes operations under a retry policy with shared logging and an
// overridable sleeper for tests.
type Runner struct {
	log   *slog.Logger
	sleep func(context.Context, time.Duration) error
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithSleeper overrides how retry delays are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) RunnerOption {
	return func(r *Runner) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// NewRunner constructs a Runner. A nil logger discards retry chatter.
func NewRunner(log *slog.Logger, opts ...RunnerOption) *Runner {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	r := &Runner{log: log, sleep: sleepContext}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs fn under the policy: up to MaxRetries+1 total attempts with
// exponential backoff between retries. Permanently classified errors stop
// immediately. When attempts are exhausted the FailureMode decides whether the
// last error propagates or an unsuccessful Outcome is returned.
func Execute[T any](ctx context.Context, r *Runner, op string, pol Policy, fn func(context.Context) (T, error)) (Outcome[T], error) {
	var zero T
	if pol.BaseDelay <= 0 {
		pol.BaseDelay = DefaultBaseDelay
	}
	if pol.Multiplier <= 0 {
		pol.Multiplier = DefaultMultiplier
	}
	attempts := pol.MaxRetries + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				r.log.Info("operation succeeded after retry", "op", op, "attempt", attempt+1)
			}
			return Outcome[T]{Result: result, Succeeded: true}, nil
		}
		lastErr = err

		if Classify(err) == Permanent {
			r.log.Warn("non-retryable error", "op", op, "error", err)
			break
		}

		if attempt+1 < attempts {
			delay := backoffDelay(pol, attempt)
			r.log.Warn("attempt failed, retrying",
				"op", op,
				"attempt", attempt+1,
				"attempts", attempts,
				"delay", delay,
				"error", err)
			if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
				lastErr = sleepErr
				break
			}
		} else {
			r.log.Error("operation failed after retries", "op", op, "attempts", attempts, "error", err)
		}
	}

	if pol.OnFinalFailure == ReturnDefault {
		r.log.Warn("operation abandoned, returning default", "op", op, "error", lastErr)
		return Outcome[T]{Result: zero, Succeeded: false}, nil
	}
	return Outcome[T]{Result: zero, Succeeded: false}, lastErr
}

// BestEffort runs fn once, swallowing any failure. It exists for strictly
// optional side effects (cosmetic operations) where the default value is an
// acceptable answer.
func BestEffort[T any](ctx context.Context, r *Runner, op string, fn func(context.Context) (T, error)) T {
	var zero T
	result, err := fn(ctx)
	if err != nil {
		r.log.Warn("best-effort operation failed", "op", op, "error", err)
		return zero
	}
	return result
}

func backoffDelay(pol Policy, attempt int) time.Duration {
	delay := float64(pol.BaseDelay)
	for i := 0; i < attempt; i++ {
		delay *= pol.Multiplier
	}
	return time.Duration(delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
