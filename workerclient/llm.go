package workerclient

import (
	"context"
	"errors"
	"time"

	"github.com/archiveflow/coordinator/apperrors"
)

// Provider is the minimal surface a concrete LLM backend exposes to
// CallLLM: a single-turn prompt/system completion. Provider A (Anthropic)
// and Provider B (OpenAI) both implement this; CallLLM is otherwise
// provider-agnostic.
type Provider interface {
	Complete(ctx context.Context, prompt, system string) (string, error)
}

// RateLimitedError marks a Provider error as a rate-limit rejection, so
// CallLLM can apply the exponential backoff curve instead of the linear
// one. Concrete providers wrap their 429-equivalent responses in this type.
type RateLimitedError struct {
	Cause error
}

func (e *RateLimitedError) Error() string { return "rate limited: " + e.Cause.Error() }
func (e *RateLimitedError) Unwrap() error { return e.Cause }

const (
	defaultMaxAttempts   = 5
	defaultAttemptWallClock = 180 * time.Second
)

// CallLLM invokes the configured Provider with bounded retries, per
// spec.md §4.4. Three distinct backoff curves apply depending on how the
// attempt failed:
//
//   - rate-limit error:    exponential 1, 2, 4, 8, 16s
//   - other provider error: linear 1, 2, 3, 4, 5s
//   - per-attempt timeout:  linear starting at 2s (2, 4, 6, 8, 10s)
//
// On exhaustion the final attempt's error is returned unchanged.
func (c *Client) CallLLM(ctx context.Context, prompt, system string) (string, error) {
	if c.llm == nil {
		return "", apperrors.WrapWorker("no LLM provider configured", nil)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", apperrors.WrapWorker("throttle wait canceled", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < defaultMaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, defaultAttemptWallClock)
		result, err := c.llm.Complete(attemptCtx, prompt, system)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == defaultMaxAttempts-1 {
			break
		}

		var wait time.Duration
		var rateLimited *RateLimitedError
		switch {
		case errors.As(err, &rateLimited):
			wait = exponentialBackoff(attempt)
		case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
			wait = linearBackoff(attempt, 2*time.Second, 2*time.Second)
		default:
			wait = linearBackoff(attempt, 1*time.Second, 1*time.Second)
		}

		select {
		case <-ctx.Done():
			return "", apperrors.WrapWorker("canceled during LLM retry backoff", ctx.Err())
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

// exponentialBackoff implements the rate-limit curve: 1, 2, 4, 8, 16s.
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// linearBackoff implements both the non-rate-limit-error curve
// (start=step=1s) and the per-attempt-timeout curve (start=step=2s).
func linearBackoff(attempt int, start, step time.Duration) time.Duration {
	return start + time.Duration(attempt)*step
}
