package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DiscountMetrics counts eligibility evaluations.
type DiscountMetrics struct {
	evaluations *prometheus.CounterVec
}

// NewDiscountMetrics registers the discount evaluation counter.
func NewDiscountMetrics(reg prometheus.Registerer) *DiscountMetrics {
	if reg == nil {
		return &DiscountMetrics{}
	}
	evaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "letrinh_discount_evaluations_total",
		Help: "Discount eligibility evaluations by outcome and reason code.",
	}, []string{"outcome", "reason"})
	reg.MustRegister(evaluations)
	return &DiscountMetrics{evaluations: evaluations}
}

// ObserveEvaluation records one evaluation. reason is empty for applicable results.
func (m *DiscountMetrics) ObserveEvaluation(outcome, reason string) {
	if m == nil || m.evaluations == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	m.evaluations.WithLabelValues(normalizeLabel(outcome), reason).Inc()
}

// SettlementMetrics counts and times order settlements.
type SettlementMetrics struct {
	settlements *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewSettlementMetrics registers the settlement counter and histogram.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "letrinh_order_settlements_total",
		Help: "Order settlements by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "letrinh_order_settlement_duration_seconds",
		Help:    "Wall time of order settlement transactions.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(settlements, duration)
	return &SettlementMetrics{settlements: settlements, duration: duration}
}

// ObserveSettlement records the outcome and duration of one settlement.
func (m *SettlementMetrics) ObserveSettlement(outcome string, elapsed time.Duration) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// HTTPMetrics tracks request counts and latency per chi route pattern.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP request metrics.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "letrinh_http_requests_total",
		Help: "HTTP requests by method, route and status class.",
	}, []string{"method", "route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "letrinh_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	reg.MustRegister(requests, latency)
	return &HTTPMetrics{requests: requests, latency: latency}
}

// ObserveRequest records one completed request.
func (m *HTTPMetrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	route = normalizeLabel(route)
	m.requests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
