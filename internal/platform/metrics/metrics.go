package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the credit workflow.
type Metrics struct {
	ApplicationsCreated *prometheus.CounterVec
	StatusUpdates       *prometheus.CounterVec
	AuditEvents         *prometheus.CounterVec
	EvaluationDuration  prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ApplicationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditdesk_applications_created_total",
			Help: "Credit applications created, labeled by the engine's suggested status",
		}, []string{"suggested_status"}),
		StatusUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditdesk_status_updates_total",
			Help: "Status transitions applied by analysts",
		}, []string{"new_status"}),
		AuditEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditdesk_audit_events_total",
			Help: "Audit entries appended, labeled by action",
		}, []string{"action"}),
		EvaluationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "creditdesk_evaluation_duration_seconds",
			Help:    "Latency of credit application evaluations",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncApplicationsCreated(suggested string) {
	if m == nil {
		return
	}
	m.ApplicationsCreated.WithLabelValues(suggested).Inc()
}

func (m *Metrics) IncStatusUpdates(newStatus string) {
	if m == nil {
		return
	}
	m.StatusUpdates.WithLabelValues(newStatus).Inc()
}

func (m *Metrics) IncAuditEvents(action string) {
	if m == nil {
		return
	}
	m.AuditEvents.WithLabelValues(action).Inc()
}

func (m *Metrics) ObserveEvaluation(seconds float64) {
	if m == nil {
		return
	}
	m.EvaluationDuration.Observe(seconds)
}
