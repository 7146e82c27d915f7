// Package retry centralizes the bounded retry-with-backoff behavior shared
// by the generation orchestrator and the reference acquisitor.
package retry

import (
	"context"
	"strings"
	"time"
)

// Policy bounds a retry loop: attempt count, backoff growth, and the
// predicate deciding which failures are worth another attempt.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Retryable   func(error) bool
}

// FixedLinearBackoff returns a backoff of base plus step per completed
// attempt (attempt 1 waits base, attempt 2 waits base+step, ...).
func FixedLinearBackoff(base, step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base + time.Duration(attempt-1)*step
	}
}

// Do runs fn up to MaxAttempts times, sleeping between attempts. It stops
// early when fn succeeds, the error is not retryable, or ctx is cancelled.
// The returned error is the last failure observed.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	max := p.MaxAttempts
	if max < 1 {
		max = 1
	}
	var lastErr error
	for attempt := 1; attempt <= max; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == max {
			break
		}
		wait := time.Duration(0)
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}

// transientSignatures are the error-text fragments treated as transient
// backend failures: overload, rate limiting, unavailability, and timeouts.
var transientSignatures = []string{
	"429",
	"503",
	"rate limit",
	"ratelimit",
	"resource exhausted",
	"resource_exhausted",
	"overloaded",
	"unavailable",
	"deadline exceeded",
	"timeout",
	"timed out",
	"connection reset",
	"temporary failure",
}

// IsTransient classifies an error as a transient backend failure by its
// text. Remote SDKs flatten status codes into messages, so signature
// matching is the practical classification here.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if err == context.DeadlineExceeded {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
