package workerclient

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle is a process-local client-side limiter on the CallLLM path, per
// spec.md §5's backpressure note: there is no protocol-level backpressure,
// but a worker may still choose to rate-limit its own outbound LLM calls.
// Unlike the teacher's cluster-coordinated AdaptiveRateLimiter, this has no
// cross-process coordination and no AIMD adjustment — one worker process,
// one token bucket.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle constructs a Throttle allowing up to requestsPerMinute calls,
// with a burst of burst.
func NewThrottle(requestsPerMinute float64, burst int) *Throttle {
	return &Throttle{
		limiter: rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), burst),
	}
}

// Wait blocks until a token is available or ctx is canceled.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}
