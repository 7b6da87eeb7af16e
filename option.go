package tonwatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hedeqiang/tonwatch/cursor"
	"github.com/hedeqiang/tonwatch/middleware"
	"github.com/hedeqiang/tonwatch/retry"
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithCursor sets the store that persists subscription cursors.
func WithCursor(c cursor.Cursor) Option {
	return func(m *Monitor) {
		m.store = c
	}
}

// WithRetry sets the retry strategy for both account and block requests.
func WithRetry(strategy retry.Strategy) Option {
	return func(m *Monitor) {
		m.config.AccountRetry = strategy
		m.config.ChainRetry = strategy
	}
}

// WithCircuitBreaker shares cb across every request of every subscription.
func WithCircuitBreaker(cb *retry.CircuitBreaker) Option {
	return func(m *Monitor) {
		m.breaker = cb
	}
}

// WithMiddleware adds middleware to the delivery pipeline.
func WithMiddleware(mw ...middleware.Middleware) Option {
	return func(m *Monitor) {
		m.middlewares = append(m.middlewares, mw...)
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(m *Monitor) {
		m.config = cfg
	}
}

// WithPollInterval sets the time between ticks.
func WithPollInterval(d time.Duration) Option {
	return func(m *Monitor) {
		m.config.PollInterval = d
	}
}

// WithPageSize sets the account history page size.
func WithPageSize(n int) Option {
	return func(m *Monitor) {
		m.config.PageSize = n
	}
}

// WithLogLevel sets the log verbosity level of the default logger.
func WithLogLevel(level string) Option {
	return func(m *Monitor) {
		m.config.LogLevel = level
	}
}

// WithLogger sets the logger. It takes precedence over WithLogLevel.
func WithLogger(l *zap.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// WithMetrics registers subscription metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(m *Monitor) {
		m.registerer = reg
	}
}
