package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/hedeqiang/tonwatch/event"
)

// Throttle limits the rate at which transactions reach the handler. Unlike
// dropping, it waits for a slot, so nothing is lost and the subscription
// slows down instead.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle allows perSecond transactions per second with the given burst.
func NewThrottle(perSecond float64, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wrap decorates the handler with rate limiting.
func (t *Throttle) Wrap(next event.Handler) event.Handler {
	return func(ctx context.Context, tx event.Transaction) error {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("middleware: throttle: %w", err)
		}
		return next(ctx, tx)
	}
}
