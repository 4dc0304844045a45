package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit queue.
type Metrics struct {
	Emitted         prometheus.Counter
	Dropped         prometheus.Counter
	PersistFailures prometheus.Counter
}

// NewMetrics registers the audit metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Emitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "qidscan_audit_events_emitted_total",
			Help: "Total number of audit events accepted by the queue",
		}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "qidscan_audit_events_dropped_total",
			Help: "Total number of audit events dropped because the queue was full",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "qidscan_audit_persist_failures_total",
			Help: "Total number of audit events the worker failed to persist",
		}),
	}
}
