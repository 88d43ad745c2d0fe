package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus instruments for HTTP traffic, SLA tracking and
// automation. A nil *Metrics is a valid no-op.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec

	statusesCreated     *prometheus.CounterVec
	milestonesCompleted *prometheus.CounterVec
	breaches            *prometheus.CounterVec
	scanDuration        prometheus.Histogram
	scanRuns            *prometheus.CounterVec

	triggerEvaluations *prometheus.CounterVec
	actionsApplied     *prometheus.CounterVec
	sideEffectFailures *prometheus.CounterVec
}

// NewMetrics registers every instrument on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_errors_total",
			Help: "HTTP errors by domain error code",
		}, []string{"method", "route", "code"}),
		statusesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_statuses_created_total",
			Help: "SLA statuses created at ticket creation",
		}, []string{"policy_id"}),
		milestonesCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_milestones_completed_total",
			Help: "SLA milestones completed",
		}, []string{"milestone"}),
		breaches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_breaches_total",
			Help: "SLA milestones flagged as breached",
		}, []string{"milestone"}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sla_scan_duration_seconds",
			Help:    "Duration of breach scans",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		scanRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_scan_runs_total",
			Help: "Breach scan runs by outcome",
		}, []string{"outcome"}),
		triggerEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "automation_trigger_evaluations_total",
			Help: "Trigger evaluations by event and result",
		}, []string{"event", "result"}),
		actionsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "automation_actions_applied_total",
			Help: "Action bundles applied by origin",
		}, []string{"origin"}),
		sideEffectFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "automation_side_effect_failures_total",
			Help: "Reply or notification steps that failed after a committed mutation",
		}, []string{"origin", "step"}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, route, code).Inc()
}

func (m *Metrics) SlaStatusCreated(policyID string) {
	if m == nil {
		return
	}
	m.statusesCreated.WithLabelValues(policyID).Inc()
}

func (m *Metrics) MilestoneCompleted(milestone string) {
	if m == nil {
		return
	}
	m.milestonesCompleted.WithLabelValues(milestone).Inc()
}

func (m *Metrics) BreachDetected(milestone string) {
	if m == nil {
		return
	}
	m.breaches.WithLabelValues(milestone).Inc()
}

// ObserveScan records one scan run; outcome is completed, skipped or failed.
func (m *Metrics) ObserveScan(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.scanRuns.WithLabelValues(outcome).Inc()
	if outcome != "skipped" {
		m.scanDuration.Observe(duration.Seconds())
	}
}

// TriggerEvaluated records a trigger outcome: matched, unmatched or error.
func (m *Metrics) TriggerEvaluated(event, result string) {
	if m == nil {
		return
	}
	m.triggerEvaluations.WithLabelValues(event, result).Inc()
}

func (m *Metrics) ActionApplied(origin string) {
	if m == nil {
		return
	}
	m.actionsApplied.WithLabelValues(origin).Inc()
}

func (m *Metrics) SideEffectFailed(origin, step string) {
	if m == nil {
		return
	}
	m.sideEffectFailures.WithLabelValues(origin, step).Inc()
}
