package metrics

import "github.com/prometheus/client_golang/prometheus"

// VisitMetrics exposes counters/histograms for the visit lifecycle.
type VisitMetrics struct {
	operationsTotal *prometheus.CounterVec
	fallbacksTotal  *prometheus.CounterVec
	adapterLatency  *prometheus.HistogramVec
}

func NewVisitMetrics(reg prometheus.Registerer) *VisitMetrics {
	m := &VisitMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reprocare",
			Subsystem: "visit",
			Name:      "operations_total",
			Help:      "Total visit lifecycle operations",
		}, []string{"operation", "status"}),
		fallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reprocare",
			Subsystem: "visit",
			Name:      "adapter_fallbacks_total",
			Help:      "Total degraded responses substituted for a failing external adapter",
		}, []string{"adapter"}),
		adapterLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reprocare",
			Subsystem: "visit",
			Name:      "adapter_latency_seconds",
			Help:      "Latency of external adapter calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"adapter"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.fallbacksTotal, m.adapterLatency)
	return m
}

func (m *VisitMetrics) ObserveOperation(operation, status string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

func (m *VisitMetrics) ObserveFallback(adapter string) {
	if m == nil {
		return
	}
	m.fallbacksTotal.WithLabelValues(adapter).Inc()
}

func (m *VisitMetrics) ObserveAdapterLatency(adapter string, seconds float64) {
	if m == nil {
		return
	}
	m.adapterLatency.WithLabelValues(adapter).Observe(seconds)
}
