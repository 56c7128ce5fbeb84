// Package ratelimit paces outbound gateway requests so bulk work, like a
// chunked upload posting hundreds of chunks, stays inside the endpoint's
// request budget.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket over golang.org/x/time/rate, sized in requests
// per minute because that is the unit gateway limits are published in.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerMinute sustained requests. The
// burst is a tenth of the budget, floored at one, so an upload can open with
// a small flurry of chunk posts without draining the whole minute.
func New(requestsPerMinute int) *Limiter {
	rps := float64(requestsPerMinute) / 60.0
	burst := requestsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// NewWithBurst creates a limiter with an explicit per-second rate and burst.
func NewWithBurst(requestsPerSecond float64, burst int) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Wait blocks until the next request may go out or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may go out immediately, without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// SetLimit retunes the sustained rate, keeping the current burst.
func (l *Limiter) SetLimit(requestsPerMinute int) {
	l.limiter.SetLimit(rate.Limit(float64(requestsPerMinute) / 60.0))
}
