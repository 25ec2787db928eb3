// Package resilience provides resilient execution patterns using fortify.
package resilience

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
)

// Executor wraps upstream calls (Firebase, Slack, LLM) with circuit
// breaker, retry, and bulkhead patterns.
type Executor[T any] struct {
	bulkhead bulkhead.Bulkhead[T]
	breaker  circuitbreaker.CircuitBreaker[T]
	retry    retry.Retry[T]
	timeout  time.Duration
}

// ExecutorConfig configures the resilient executor.
type ExecutorConfig struct {
	// MaxConcurrent limits concurrent upstream calls.
	MaxConcurrent int

	// CircuitBreakerThreshold is the number of failures before opening.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration

	// RetryMaxAttempts is the maximum number of retry attempts.
	RetryMaxAttempts int

	// RetryInitialDelay is the initial delay between retries.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64

	// DefaultTimeout is the default execution timeout.
	DefaultTimeout time.Duration
}

// DefaultExecutorConfig returns a configuration with sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrent:           10,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
		RetryMaxAttempts:        3,
		RetryInitialDelay:       100 * time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		DefaultTimeout:          30 * time.Second,
	}
}

// NewExecutor creates a new resilient executor.
func NewExecutor[T any](config ExecutorConfig) *Executor[T] {
	// Ensure non-negative values for uint32 conversion (G115 fix)
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent < 0 {
		maxConcurrent = 10 // default
	}
	threshold := config.CircuitBreakerThreshold
	if threshold < 0 {
		threshold = 5 // default
	}

	return &Executor[T]{
		bulkhead: bulkhead.New[T](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
		}),
		breaker: circuitbreaker.New[T](circuitbreaker.Config{
			MaxRequests: uint32(maxConcurrent), // #nosec G115 -- bounds checked above
			Interval:    config.CircuitBreakerTimeout,
			Timeout:     config.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
		retry: retry.New[T](retry.Config{
			MaxAttempts:   config.RetryMaxAttempts,
			InitialDelay:  config.RetryInitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    config.RetryBackoffMultiplier,
		}),
		timeout: config.DefaultTimeout,
	}
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor[T any]() *Executor[T] {
	return NewExecutor[T](DefaultExecutorConfig())
}

// Operation is an upstream call protected by the executor.
type Operation[T any] func(ctx context.Context) (T, error)

// Execute runs an operation with resilience patterns applied.
// Composition order: Bulkhead → Timeout → Circuit Breaker → Retry
func (e *Executor[T]) Execute(ctx context.Context, op Operation[T]) (T, error) {
	return e.bulkhead.Execute(ctx, func(ctx context.Context) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		return e.breaker.Execute(ctx, func(ctx context.Context) (T, error) {
			return e.retry.Do(ctx, func(ctx context.Context) (T, error) {
				return op(ctx)
			})
		})
	})
}

// ExecuteWithTimeout runs an operation with a custom timeout.
func (e *Executor[T]) ExecuteWithTimeout(ctx context.Context, op Operation[T], timeout time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.Execute(ctx, op)
}

// ExecuteOnce runs an operation with bulkhead and breaker protection
// but no retry. Use this for calls that are not idempotent.
func (e *Executor[T]) ExecuteOnce(ctx context.Context, op Operation[T]) (T, error) {
	return e.bulkhead.Execute(ctx, func(ctx context.Context) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		return e.breaker.Execute(ctx, func(ctx context.Context) (T, error) {
			return op(ctx)
		})
	})
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (e *Executor[T]) CircuitBreakerState() circuitbreaker.State {
	return e.breaker.State()
}
