package tonwatch

import (
	"time"

	"github.com/hedeqiang/tonwatch/retry"
	"github.com/hedeqiang/tonwatch/watcher"
)

// Config holds the global configuration for a Monitor.
type Config struct {
	// PollInterval is the time between ticks of every subscription.
	PollInterval time.Duration

	// PageSize is the number of transactions requested per history page
	// by account subscriptions.
	PageSize int

	// AccountRetry is applied to account history requests.
	AccountRetry retry.Strategy

	// ChainRetry is applied to block requests.
	ChainRetry retry.Strategy

	// LogLevel controls log verbosity ("debug", "info", "warn", "error")
	// when no logger is supplied.
	LogLevel string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		PageSize:     watcher.DefaultPageSize,
		AccountRetry: retry.Linear(10, time.Second),
		ChainRetry:   retry.Exponential(5),
		LogLevel:     "info",
	}
}
