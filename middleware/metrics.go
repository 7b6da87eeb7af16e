package middleware

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hedeqiang/tonwatch/event"
)

// Metrics counts handled transactions by outcome.
type Metrics struct {
	processed prometheus.Counter
	failed    prometheus.Counter
	latency   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg, which may
// be nil for an unregistered instance.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tonwatch",
			Subsystem: "handler",
			Name:      "processed_total",
			Help:      "Transactions the handler accepted.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tonwatch",
			Subsystem: "handler",
			Name:      "failed_total",
			Help:      "Transactions the handler rejected with an error.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tonwatch",
			Subsystem: "handler",
			Name:      "duration_seconds",
			Help:      "Handler latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.processed, m.failed, m.latency)
	}
	return m
}

// Wrap decorates the handler with metrics collection.
func (m *Metrics) Wrap(next event.Handler) event.Handler {
	return func(ctx context.Context, tx event.Transaction) error {
		timer := prometheus.NewTimer(m.latency)
		err := next(ctx, tx)
		timer.ObserveDuration()
		if err != nil {
			m.failed.Inc()
		} else {
			m.processed.Inc()
		}
		return err
	}
}
