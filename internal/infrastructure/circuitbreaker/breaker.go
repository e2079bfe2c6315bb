package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Settings configures a breaker guarding one upstream.
type Settings struct {
	Name string

	// MaxRequests allowed through while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state after which counts reset.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// MinRequests is the sample size needed before FailureRatio is evaluated.
	MinRequests uint32

	FailureRatio float64
}

func DefaultSettings(name string) Settings {
	return Settings{
		Name:         name,
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

// New builds a gobreaker.CircuitBreaker. Cancelled requests are not
// counted as failures: closing the voice overlay mid-request is routine.
func New(s Settings, log *zap.Logger) *gobreaker.CircuitBreaker {
	def := DefaultSettings(s.Name)
	if s.MaxRequests == 0 {
		s.MaxRequests = def.MaxRequests
	}
	if s.Interval == 0 {
		s.Interval = def.Interval
	}
	if s.Timeout == 0 {
		s.Timeout = def.Timeout
	}
	if s.MinRequests == 0 {
		s.MinRequests = def.MinRequests
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = def.FailureRatio
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= s.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// IsOpen reports whether err was produced by the breaker rejecting a call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
