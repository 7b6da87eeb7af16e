package watcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hedeqiang/tonwatch/cursor"
)

// Metrics exposes subscription progress to Prometheus. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	ticks     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	delivered *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	cursor    *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tonwatch",
			Name:      "ticks_total",
			Help:      "Subscriber ticks by outcome.",
		}, []string{"subscriber", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tonwatch",
			Name:      "tick_duration_seconds",
			Help:      "Time spent in one subscriber tick.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"subscriber"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tonwatch",
			Name:      "delivered_transactions_total",
			Help:      "Transactions handed to the handler.",
		}, []string{"subscriber"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tonwatch",
			Name:      "dropped_ticks_total",
			Help:      "Timer firings skipped because a tick was still running.",
		}, []string{"subscriber"}),
		cursor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tonwatch",
			Name:      "cursor_position",
			Help:      "Last committed seqno (chain) or logical time (account).",
		}, []string{"subscriber"}),
	}
	if reg != nil {
		reg.MustRegister(m.ticks, m.duration, m.delivered, m.dropped, m.cursor)
	}
	return m
}

func (m *Metrics) observeTick(key string, err error, took time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ticks.WithLabelValues(key, outcome).Inc()
	m.duration.WithLabelValues(key).Observe(took.Seconds())
}

func (m *Metrics) observeDelivered(key string) {
	if m == nil {
		return
	}
	m.delivered.WithLabelValues(key).Inc()
}

func (m *Metrics) observeDropped(key string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(key).Inc()
}

func (m *Metrics) observeCursor(key string, pos cursor.Position) {
	if m == nil {
		return
	}
	v := float64(pos.SeqNo)
	if pos.LT != 0 {
		v = float64(pos.LT)
	}
	m.cursor.WithLabelValues(key).Set(v)
}
