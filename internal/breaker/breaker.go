// Package breaker wraps sony/gobreaker/v2 into the circuit-breaker stage
// used by both the scraper decorator chain and the debrid provider
// abstraction: closed under normal operation, opens after a run of
// failures, half-opens after a cooldown to probe recovery.
package breaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Breaker wraps one gobreaker.CircuitBreaker per named external source.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

// Settings configures the three-state transition thresholds.
type Settings struct {
	// FailureThreshold is the consecutive-failure count that trips the
	// breaker from closed to open.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing with a
	// single half-open request.
	OpenTimeout time.Duration
}

// DefaultSettings mirrors the thresholds the corpus's cartographus-style
// breakers use for flaky upstream HTTP sources: five consecutive failures,
// thirty second cooldown.
func DefaultSettings() Settings {
	return Settings{FailureThreshold: 5, OpenTimeout: 30 * time.Second}
}

// New builds a named Breaker.
func New(name string, s Settings) *Breaker {
	cfg := gobreaker.Settings{
		Name:    name,
		Timeout: s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
	}
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker[any](cfg)}
}

// Execute runs fn through the breaker, short-circuiting with
// gobreaker.ErrOpenState while the breaker is open.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	return b.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
}

// State reports the current breaker state for health/diagnostic surfaces.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) Name() string { return b.name }
