// Package retry provides retry strategies and a circuit breaker for resilient chain queries.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrExhausted is matched by the error returned once a strategy gives up.
	ErrExhausted = errors.New("retry: attempts exhausted")

	// ErrCircuitOpen is returned without calling the operation while the breaker is open.
	ErrCircuitOpen = errors.New("retry: circuit open")
)

// Strategy defines a retry policy.
type Strategy interface {
	// Next returns the delay before the next attempt, given the number of
	// failed attempts so far. Returns false if no more attempts should be made.
	Next(attempt int) (delay time.Duration, ok bool)
}

// ExhaustedError reports the last failure after a strategy gave up.
// It matches ErrExhausted and unwraps to the last cause.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %s: gave up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

// Is makes errors.Is(err, ErrExhausted) true.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Policy couples a strategy with an optional circuit breaker and logger.
// The zero value performs a single attempt.
type Policy struct {
	Strategy Strategy
	Breaker  *CircuitBreaker
	Logger   *zap.Logger
}

// Do executes fn, retrying according to the policy on non-nil errors.
// The attempt counter is local to the call. It respects context cancellation.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var attempt int
	for {
		if p.Breaker != nil && !p.Breaker.Allow() {
			return fmt.Errorf("%s: %w", op, ErrCircuitOpen)
		}

		err := fn(ctx)
		if err == nil {
			if p.Breaker != nil {
				p.Breaker.RecordSuccess()
			}
			return nil
		}
		if p.Breaker != nil {
			p.Breaker.RecordFailure()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempt++
		var (
			delay time.Duration
			ok    bool
		)
		if p.Strategy != nil {
			delay, ok = p.Strategy.Next(attempt)
		}
		if !ok {
			logger.Warn("retry exhausted", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
			return &ExhaustedError{Op: op, Attempts: attempt, Err: err}
		}
		logger.Info("retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Do executes fn with the given strategy and no logging.
func Do(ctx context.Context, s Strategy, fn func(ctx context.Context) error) error {
	return Policy{Strategy: s}.Do(ctx, "call", fn)
}

// Value is Policy.Do for operations that produce a result.
func Value[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
