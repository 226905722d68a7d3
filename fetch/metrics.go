/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package fetch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-utilkit/internal/libinfo"
)

// Values of the "status" label for requests that got no response.
const (
	StatusLabelError   = "error"
	StatusLabelTimeout = "timeout"
)

// MetricsCollector represents a collector of metrics for Client.
type MetricsCollector interface {
	// ObserveRequest observes the duration of a Do call (all attempts included) and its resulting status.
	ObserveRequest(requestType, method, status string, duration time.Duration)

	// IncRetries increments the total number of retry attempts.
	IncRetries(requestType string)
}

// PrometheusMetrics represents Prometheus metrics for Client.
type PrometheusMetrics struct {
	RequestDuration *prometheus.HistogramVec
	RetriesTotal    *prometheus.CounterVec
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// DurationBuckets is a list of buckets for the request duration histogram.
	// By default, DefaultDurationBuckets is used.
	DurationBuckets []float64

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// DefaultDurationBuckets is the default buckets of the request duration histogram.
var DefaultDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.DurationBuckets
	if buckets == nil {
		buckets = DefaultDurationBuckets
	}
	constLabels := libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels)
	return &PrometheusMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "fetch_request_duration_seconds",
			Help:        "A histogram of the fetch requests durations.",
			Buckets:     buckets,
			ConstLabels: constLabels,
		}, []string{"type", "method", "status"}),
		RetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "fetch_retries_total",
			Help:        "Number of retry attempts of fetch requests.",
			ConstLabels: constLabels,
		}, []string{"type"}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.RequestDuration, pm.RetriesTotal)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.RequestDuration)
	prometheus.Unregister(pm.RetriesTotal)
}

// ObserveRequest observes the duration of a request.
func (pm *PrometheusMetrics) ObserveRequest(requestType, method, status string, duration time.Duration) {
	pm.RequestDuration.WithLabelValues(requestType, method, status).Observe(duration.Seconds())
}

// IncRetries increments the total number of retry attempts.
func (pm *PrometheusMetrics) IncRetries(requestType string) {
	pm.RetriesTotal.WithLabelValues(requestType).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) ObserveRequest(string, string, string, time.Duration) {}
func (disabledMetrics) IncRetries(string)                                     {}
