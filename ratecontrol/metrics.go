/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-utilkit/internal/libinfo"
)

const edgeLabel = "edge"

// MetricsCollector represents a collector of metrics for debouncers and throttlers.
type MetricsCollector interface {
	// IncCalls increments the total number of calls.
	IncCalls()

	// IncFires increments the total number of action firings on the given edge.
	IncFires(edge Edge)

	// IncActionErrors increments the total number of action firings on the given edge that returned an error.
	IncActionErrors(edge Edge)

	// IncCancels increments the total number of cancellations that discarded pending work.
	IncCancels()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// See PrometheusMetrics.MustCurryWith method for more details.
	// Keep in mind that if this list is not empty,
	// PrometheusMetrics.MustCurryWith method must be called further with the same labels.
	// Otherwise, the collector will panic.
	CurriedLabelNames []string
}

// PrometheusMetrics represents Prometheus metrics for debouncers and throttlers.
type PrometheusMetrics struct {
	CallsTotal        *prometheus.CounterVec
	FiresTotal        *prometheus.CounterVec
	ActionErrorsTotal *prometheus.CounterVec
	CancelsTotal      *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	constLabels := libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels)
	edgeLabelNames := append(append(make([]string, 0, len(opts.CurriedLabelNames)+1), opts.CurriedLabelNames...), edgeLabel)

	callsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "ratecontrol_calls_total",
			Help:        "Number of calls of debounced or throttled actions.",
			ConstLabels: constLabels,
		},
		opts.CurriedLabelNames,
	)

	firesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "ratecontrol_fires_total",
			Help:        "Number of actual action firings.",
			ConstLabels: constLabels,
		},
		edgeLabelNames,
	)

	actionErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "ratecontrol_action_errors_total",
			Help:        "Number of action firings that returned an error.",
			ConstLabels: constLabels,
		},
		edgeLabelNames,
	)

	cancelsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "ratecontrol_cancels_total",
			Help:        "Number of cancellations that discarded pending firings.",
			ConstLabels: constLabels,
		},
		opts.CurriedLabelNames,
	)

	return &PrometheusMetrics{
		CallsTotal:        callsTotal,
		FiresTotal:        firesTotal,
		ActionErrorsTotal: actionErrorsTotal,
		CancelsTotal:      cancelsTotal,
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		CallsTotal:        pm.CallsTotal.MustCurryWith(labels),
		FiresTotal:        pm.FiresTotal.MustCurryWith(labels),
		ActionErrorsTotal: pm.ActionErrorsTotal.MustCurryWith(labels),
		CancelsTotal:      pm.CancelsTotal.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.CallsTotal,
		pm.FiresTotal,
		pm.ActionErrorsTotal,
		pm.CancelsTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.CallsTotal)
	prometheus.Unregister(pm.FiresTotal)
	prometheus.Unregister(pm.ActionErrorsTotal)
	prometheus.Unregister(pm.CancelsTotal)
}

// IncCalls increments the total number of calls.
func (pm *PrometheusMetrics) IncCalls() {
	pm.CallsTotal.With(nil).Inc()
}

// IncFires increments the total number of action firings on the given edge.
func (pm *PrometheusMetrics) IncFires(edge Edge) {
	pm.FiresTotal.With(prometheus.Labels{edgeLabel: string(edge)}).Inc()
}

// IncActionErrors increments the total number of failed action firings on the given edge.
func (pm *PrometheusMetrics) IncActionErrors(edge Edge) {
	pm.ActionErrorsTotal.With(prometheus.Labels{edgeLabel: string(edge)}).Inc()
}

// IncCancels increments the total number of cancellations.
func (pm *PrometheusMetrics) IncCancels() {
	pm.CancelsTotal.With(nil).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) IncCalls()            {}
func (disabledMetrics) IncFires(Edge)        {}
func (disabledMetrics) IncActionErrors(Edge) {}
func (disabledMetrics) IncCancels()          {}
