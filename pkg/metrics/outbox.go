package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts what the outbox publisher does with each row.
type OutboxMetrics struct {
	dispatched *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "letrinh_outbox_dispatch_total",
		Help: "Outbox rows handled by the publisher, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(dispatched)
	return &OutboxMetrics{dispatched: dispatched}
}

// ObserveDispatch records one row. outcome is published, retry or dead_letter.
func (m *OutboxMetrics) ObserveDispatch(eventType, outcome string) {
	if m == nil || m.dispatched == nil {
		return
	}
	m.dispatched.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
