package circuitbreaker

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

type Settings struct {
	Name string
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
	// IsSuccessful decides which errors count as failures; nil counts every error.
	IsSuccessful func(err error) bool
	Logger       *slog.Logger
}

func DefaultSettings(name string) Settings {
	return Settings{
		Name:                name,
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// New creates a breaker that trips after s.ConsecutiveFailures failures in a row.
func New[T any](s Settings) *gobreaker.CircuitBreaker[T] {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:         s.Name,
		MaxRequests:  s.HalfOpenRequests,
		Timeout:      s.OpenTimeout,
		IsSuccessful: s.IsSuccessful,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}
