package retry

import (
	"math"
	"time"
)

// Backoff implements capped exponential backoff with a bounded number of attempts.
type Backoff struct {
	// MaxAttempts is the total number of calls, including the first one.
	MaxAttempts int

	// InitialDelay is the delay after the first failure.
	InitialDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// Multiplier is the factor by which the delay grows. Defaults to 2.
	Multiplier float64
}

// Exponential creates a Backoff of min(1s * 2^(attempt-1), 10s).
func Exponential(maxAttempts int) *Backoff {
	return &Backoff{
		MaxAttempts:  maxAttempts,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
	}
}

// Next returns the delay for the given attempt number.
func (b *Backoff) Next(attempt int) (time.Duration, bool) {
	if attempt >= b.MaxAttempts {
		return 0, false
	}

	multiplier := b.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	delay := float64(b.InitialDelay) * math.Pow(multiplier, float64(attempt-1))
	d := time.Duration(delay)
	if b.MaxDelay > 0 && (d > b.MaxDelay || delay > float64(math.MaxInt64)) {
		d = b.MaxDelay
	}

	return d, true
}

// LinearBackoff waits attempt * Step between attempts.
type LinearBackoff struct {
	MaxAttempts int
	Step        time.Duration
}

// Linear creates a LinearBackoff.
func Linear(maxAttempts int, step time.Duration) *LinearBackoff {
	return &LinearBackoff{MaxAttempts: maxAttempts, Step: step}
}

// Next returns attempt * Step until MaxAttempts calls have been made.
func (l *LinearBackoff) Next(attempt int) (time.Duration, bool) {
	if attempt >= l.MaxAttempts {
		return 0, false
	}
	return time.Duration(attempt) * l.Step, true
}
