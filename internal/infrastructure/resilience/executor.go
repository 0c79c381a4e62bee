package resilience

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Outcome tells the executor how to treat one failed call.
type Outcome struct {
	Retry bool
	// Trip counts the failure against the operation's breaker.
	Trip bool
}

type Classifier func(err error) Outcome

// Executor retries calls with exponential backoff behind one breaker per
// operation name.
type Executor struct {
	policy Policy
	logger *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(policy Policy, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		policy:   policy.withDefaults(),
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	if fn == nil {
		return errors.New("resilience: nil operation")
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "unknown"
	}
	if classify == nil {
		classify = neverRetry
	}

	if !e.policy.BreakerEnabled {
		return e.retry(ctx, operation, fn, classify)
	}
	_, err := e.breaker(operation, classify).Execute(func() (struct{}, error) {
		return struct{}{}, e.retry(ctx, operation, fn, classify)
	})
	return err
}

func (e *Executor) retry(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	var lastErr error
	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == e.policy.MaxAttempts || !classify(lastErr).Retry {
			return lastErr
		}

		wait := e.policy.backoff(attempt)
		e.logger.Warn("retry_attempt",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", e.policy.MaxAttempts,
			"backoff_ms", wait.Milliseconds(),
			"error", lastErr,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

func (e *Executor) breaker(operation string, classify Classifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[operation]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.policy.BreakerProbeCalls,
		Timeout:     e.policy.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.policy.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= e.policy.BreakerTripRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).Trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	})
	e.breakers[operation] = cb
	return cb
}

// IsCircuitOpen reports whether err came from a breaker refusing the call.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func neverRetry(error) Outcome {
	return Outcome{Retry: false, Trip: true}
}
