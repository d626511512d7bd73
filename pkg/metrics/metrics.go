package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"site-entry/pkg/config"
)

// Metrics holds the workflow counters. A nil *Metrics or one built with
// metrics disabled records nothing.
type Metrics struct {
	transitions        *prometheus.CounterVec
	transitionFailures *prometheus.CounterVec
	validations        *prometheus.CounterVec
	validationDuration prometheus.Histogram
	deploymentOps      *prometheus.CounterVec
	sideEffectFailures *prometheus.CounterVec

	registry *prometheus.Registry
}

func New(cfg config.MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{}
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entry_request_transitions_total",
				Help:      "Committed entry request status transitions",
			},
			[]string{"operation", "from", "to"},
		),
		transitionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entry_request_transition_failures_total",
				Help:      "Refused or failed entry request operations by reason",
			},
			[]string{"operation", "reason"},
		),
		validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compliance_validations_total",
				Help:      "Compliance validations by outcome",
			},
			[]string{"valid"},
		),
		validationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compliance_validation_duration_seconds",
				Help:      "Time spent building a compliance report",
				Buckets:   prometheus.DefBuckets,
			},
		),
		deploymentOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deployment_operations_total",
				Help:      "Deployment lifecycle operations",
			},
			[]string{"operation"},
		),
		sideEffectFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "side_effect_failures_total",
				Help:      "Post-commit side effects that failed and were only logged",
			},
			[]string{"effect"},
		),
	}

	registry.MustRegister(
		m.transitions,
		m.transitionFailures,
		m.validations,
		m.validationDuration,
		m.deploymentOps,
		m.sideEffectFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) RecordTransition(operation, from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(operation, from, to).Inc()
}

func (m *Metrics) RecordTransitionFailure(operation, reason string) {
	if m == nil || m.transitionFailures == nil {
		return
	}
	m.transitionFailures.WithLabelValues(operation, reason).Inc()
}

func (m *Metrics) RecordValidation(valid bool, took time.Duration) {
	if m == nil || m.validations == nil {
		return
	}
	label := "false"
	if valid {
		label = "true"
	}
	m.validations.WithLabelValues(label).Inc()
	m.validationDuration.Observe(took.Seconds())
}

func (m *Metrics) RecordDeploymentOp(operation string) {
	if m == nil || m.deploymentOps == nil {
		return
	}
	m.deploymentOps.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordSideEffectFailure(effect string) {
	if m == nil || m.sideEffectFailures == nil {
		return
	}
	m.sideEffectFailures.WithLabelValues(effect).Inc()
}

// Handler serves the registry, or 404 when metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
