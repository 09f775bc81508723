// Package ratelimit wraps golang.org/x/time/rate into the token-bucket
// stage the scraper decorator chain and debrid providers install in front
// of outbound HTTP calls.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a named token bucket: one instance per scraper or per debrid
// provider, since each external source has its own rate budget.
type Limiter struct {
	name    string
	limiter *rate.Limiter
}

// New builds a Limiter allowing ratePerSecond requests per second with the
// given burst. A ratePerSecond of 0 disables limiting entirely (rate.Inf).
func New(name string, ratePerSecond float64, burst int) *Limiter {
	if ratePerSecond <= 0 {
		return &Limiter{name: name, limiter: rate.NewLimiter(rate.Inf, burst)}
	}
	return &Limiter{name: name, limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a token is immediately available, consuming one if so.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

func (l *Limiter) Name() string { return l.name }
