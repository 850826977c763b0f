package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matraxtyres/tyre_assistant/metrics"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Breaker wraps gobreaker with a per-call timeout and Prometheus state metrics.
type Breaker struct {
	cb      *gobreaker.CircuitBreaker
	name    string
	timeout time.Duration
}

func NewBreaker(name string, timeout time.Duration, logger *logrus.Logger) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(metrics.ServiceName(), cbName).Set(stateValue(to))
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"field":   "Breaker",
					"circuit": cbName,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("circuit breaker state changed")
			}
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(metrics.ServiceName(), name).Set(0)
	return &Breaker{cb: cb, name: name, timeout: timeout}
}

func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Call runs fn through the breaker. fn receives a context bounded by the breaker timeout.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if b == nil {
		return fn(ctx)
	}
	callCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn(callCtx)
	})
	if err != nil {
		metrics.CircuitBreakerFailures.WithLabelValues(metrics.ServiceName(), b.name).Inc()
		return zero, formatBreakerError(b.name, err)
	}
	return out.(T), nil
}

func formatBreakerError(name string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) {
		return fmt.Errorf("circuit breaker %s is open: %w", name, err)
	}
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("circuit breaker %s: too many requests in half-open state: %w", name, err)
	}
	return err
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
