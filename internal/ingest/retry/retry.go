// Package retry provides a bounded retry executor with jittered exponential
// backoff. It is parametric over the operation it wraps and knows nothing
// about HTTP.
package retry

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// Backoff schedule defaults.
const (
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 60 * time.Second
	DefaultMultiplier     = 2.0

	// jitterFactor bounds the two-sided jitter applied to a backoff delay.
	jitterFactor = 0.1
)

// Policy configures the retry loop.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt, so the
	// operation runs at most MaxRetries+1 times.
	MaxRetries int
	// Initial, Max and Multiplier shape the exponential backoff. Zero values
	// fall back to the package defaults.
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

func (p Policy) withDefaults() Policy {
	if p.Initial <= 0 {
		p.Initial = DefaultInitialBackoff
	}
	if p.Max <= 0 {
		p.Max = DefaultMaxBackoff
	}
	if p.Multiplier <= 0 {
		p.Multiplier = DefaultMultiplier
	}
	return p
}

// Outcome reports how a retried operation ended. Value is meaningful only
// when OK is true; Err only when it is false.
type Outcome[T any] struct {
	OK       bool
	Value    T
	Err      error
	Attempts int
	Elapsed  time.Duration
}

// Do runs op up to p.MaxRetries+1 times. A failure for which retryable
// returns false, or exhaustion of attempts, ends the loop with a failed
// outcome carrying the last error. Before each retry sleep the onRetry
// callback (if any) is invoked with the zero-based attempt index and the
// error. Context cancellation, including mid-backoff, is an immediate
// failure, never a retry.
func Do[T any](
	ctx context.Context,
	p Policy,
	op func(context.Context) (T, error),
	retryable func(error) bool,
	onRetry func(attempt int, err error),
) Outcome[T] {
	p = p.withDefaults()
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return Outcome[T]{Err: lastErr, Attempts: attempt, Elapsed: time.Since(start)}
		}

		value, err := op(ctx)
		if err == nil {
			return Outcome[T]{OK: true, Value: value, Attempts: attempt + 1, Elapsed: time.Since(start)}
		}
		lastErr = err

		if retryable != nil && !retryable(err) {
			return Outcome[T]{Err: lastErr, Attempts: attempt + 1, Elapsed: time.Since(start)}
		}
		if attempt == p.MaxRetries {
			break
		}

		if onRetry != nil {
			onRetry(attempt, err)
		}
		if err := sleep(ctx, p.Backoff(attempt)); err != nil {
			return Outcome[T]{Err: lastErr, Attempts: attempt + 1, Elapsed: time.Since(start)}
		}
	}

	return Outcome[T]{Err: lastErr, Attempts: p.MaxRetries + 1, Elapsed: time.Since(start)}
}

// Backoff returns the delay before retrying the given zero-based attempt:
// min(initial * multiplier^attempt, max), with a jitter of up to ±10%.
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	delay := float64(p.Initial) * math.Pow(p.Multiplier, float64(attempt))
	if delay > float64(p.Max) {
		delay = float64(p.Max)
	}
	return time.Duration(delay) + signedJitter(time.Duration(delay*jitterFactor))
}

// signedJitter returns a uniformly random duration in (-limit, +limit).
func signedJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(2*int64(limit)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64()) - limit
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
