package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrGatewayUnavailable is returned while the circuit breaker is open and
// calls to the language model are rejected without being attempted.
var ErrGatewayUnavailable = goerr.New("language model gateway is unavailable")

// GuardConfig bounds outbound language-model traffic.
type GuardConfig struct {
	// MaxFailures is the number of consecutive failures that trips the
	// breaker open.
	MaxFailures uint32

	// CoolDown is how long the breaker stays open before allowing probe
	// requests again.
	CoolDown time.Duration

	// HalfOpenProbes is the number of trial requests allowed while the
	// breaker is half-open.
	HalfOpenProbes uint32

	// RequestsPerSecond caps the sustained outbound call rate. Zero
	// disables the cap.
	RequestsPerSecond float64

	// Burst is the rate limiter burst size.
	Burst int
}

// DefaultGuardConfig returns the settings used when the caller provides
// none.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		MaxFailures:       5,
		CoolDown:          30 * time.Second,
		HalfOpenProbes:    2,
		RequestsPerSecond: 10,
		Burst:             20,
	}
}

// guard routes every outbound LLM call through a rate limiter and a circuit
// breaker so a failing or saturated model endpoint sheds load instead of
// piling up requests.
type guard struct {
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func newGuard(cfg GuardConfig) *guard {
	g := &guard{}

	if cfg.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-gateway",
		MaxRequests: cfg.HalfOpenProbes,
		Interval:    0,
		Timeout:     cfg.CoolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
	})

	return g
}

// Do executes fn under the guard. While the breaker is open the call fails
// fast with ErrGatewayUnavailable.
func (g *guard) Do(ctx context.Context, fn func() (any, error)) (any, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, goerr.Wrap(err, "aborted waiting for rate limit")
		}
	}

	result, err := g.breaker.Execute(func() (any, error) {
		// The limiter wait above may have outlived the caller
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, goerr.Wrap(ErrGatewayUnavailable, "circuit breaker rejected the call")
		}
		return nil, err
	}

	return result, nil
}
