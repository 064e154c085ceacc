package orders

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts order lifecycle transitions by kind.
type Metrics struct {
	completed *prometheus.CounterVec
	deleted   *prometheus.CounterVec
}

// NewMetrics registers the order counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		completed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ward_orders_completed_total",
				Help: "Orders marked completed, by order type",
			},
			[]string{"type"},
		),
		deleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ward_orders_deleted_total",
				Help: "Orders deleted, by order type",
			},
			[]string{"type"},
		),
	}
	reg.MustRegister(m.completed, m.deleted)
	return m
}

func (m *Metrics) orderCompleted(kind string) {
	if m != nil {
		m.completed.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) orderDeleted(kind string) {
	if m != nil {
		m.deleted.WithLabelValues(kind).Inc()
	}
}
