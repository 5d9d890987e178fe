package metrics

import "github.com/prometheus/client_golang/prometheus"

// WorkflowMetrics exposes counters/histograms for patient and appointment flows.
type WorkflowMetrics struct {
	operationsTotal    *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	remoteLatency      *prometheus.HistogramVec
	dashboardStatus    *prometheus.GaugeVec
	cacheTotal         *prometheus.CounterVec
}

func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	m := &WorkflowMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carepulse",
			Subsystem: "workflow",
			Name:      "operations_total",
			Help:      "Total workflow operations by outcome",
		}, []string{"operation", "outcome"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carepulse",
			Subsystem: "workflow",
			Name:      "validation_failures_total",
			Help:      "Forms rejected by validation",
		}, []string{"form"}),
		remoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carepulse",
			Subsystem: "store",
			Name:      "remote_call_seconds",
			Help:      "Latency of calls to the document, identity and blob stores",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		dashboardStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "carepulse",
			Subsystem: "dashboard",
			Name:      "appointments",
			Help:      "Appointment counts by status from the latest dashboard listing",
		}, []string{"status"}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carepulse",
			Subsystem: "dashboard",
			Name:      "cache_total",
			Help:      "Dashboard view cache lookups by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.validationFailures, m.remoteLatency, m.dashboardStatus, m.cacheTotal)
	return m
}

func (m *WorkflowMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *WorkflowMetrics) ObserveValidationFailure(form string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(form).Inc()
}

func (m *WorkflowMetrics) ObserveRemoteLatency(op string, seconds float64) {
	if m == nil {
		return
	}
	m.remoteLatency.WithLabelValues(op).Observe(seconds)
}

// SetDashboardCounts records the status breakdown of the latest listing.
func (m *WorkflowMetrics) SetDashboardCounts(scheduled, pending, cancelled int) {
	if m == nil {
		return
	}
	m.dashboardStatus.WithLabelValues("scheduled").Set(float64(scheduled))
	m.dashboardStatus.WithLabelValues("pending").Set(float64(pending))
	m.dashboardStatus.WithLabelValues("cancelled").Set(float64(cancelled))
}

func (m *WorkflowMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if hit {
		label = "hit"
	}
	m.cacheTotal.WithLabelValues(label).Inc()
}
