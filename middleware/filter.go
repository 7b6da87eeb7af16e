package middleware

import (
	"context"

	"github.com/hedeqiang/tonwatch/event"
	"github.com/hedeqiang/tonwatch/filter"
)

// Filter passes only matching transactions to the handler. Others are
// acknowledged without being handled.
type Filter struct {
	f filter.Filter
}

// NewFilter creates a filtering middleware.
func NewFilter(f filter.Filter) *Filter {
	return &Filter{f: f}
}

// Wrap decorates the handler with filtering.
func (m *Filter) Wrap(next event.Handler) event.Handler {
	return func(ctx context.Context, tx event.Transaction) error {
		if !m.f.Match(tx) {
			return nil
		}
		return next(ctx, tx)
	}
}
