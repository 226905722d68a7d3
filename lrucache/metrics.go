/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-utilkit/internal/libinfo"
)

// MetricsCollector is notified about cache lookups and size changes.
type MetricsCollector interface {
	SetAmount(int)
	IncHits()
	IncMisses()
	AddEvictions(int)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is prepended to all metric names.
	Namespace string

	// ConstLabels are attached to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames are variable labels that must be fixed with MustCurryWith before use.
	// Keyed rate controllers, for example, curry the name of the controller that owns the cache.
	CurriedLabelNames []string
}

// PrometheusMetrics is a MetricsCollector that exports cache usage to Prometheus.
type PrometheusMetrics struct {
	EntriesAmount  *prometheus.GaugeVec
	HitsTotal      *prometheus.CounterVec
	MissesTotal    *prometheus.CounterVec
	EvictionsTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates PrometheusMetrics with the given options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	constLabels := libinfo.AddPrometheusLibVersionLabel(opts.ConstLabels)
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace, Name: name, Help: help, ConstLabels: constLabels,
		}, opts.CurriedLabelNames)
	}
	return &PrometheusMetrics{
		EntriesAmount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_entries_amount",
			Help:        "Current number of entries in the cache.",
			ConstLabels: constLabels,
		}, opts.CurriedLabelNames),
		HitsTotal:      counter("cache_hits_total", "Number of lookups that found the key."),
		MissesTotal:    counter("cache_misses_total", "Number of lookups that did not find the key."),
		EvictionsTotal: counter("cache_evictions_total", "Number of entries evicted to make room for new ones."),
	}
}

// MustCurryWith returns a copy of the collector with the curried label values set.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		EntriesAmount:  pm.EntriesAmount.MustCurryWith(labels),
		HitsTotal:      pm.HitsTotal.MustCurryWith(labels),
		MissesTotal:    pm.MissesTotal.MustCurryWith(labels),
		EvictionsTotal: pm.EvictionsTotal.MustCurryWith(labels),
	}
}

func (pm *PrometheusMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{pm.EntriesAmount, pm.HitsTotal, pm.MissesTotal, pm.EvictionsTotal}
}

// MustRegister registers the metrics in the default Prometheus registry. It panics on error.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.collectors()...)
}

// Unregister removes the metrics from the default Prometheus registry.
func (pm *PrometheusMetrics) Unregister() {
	for _, c := range pm.collectors() {
		prometheus.Unregister(c)
	}
}

// SetAmount implements MetricsCollector.
func (pm *PrometheusMetrics) SetAmount(amount int) {
	pm.EntriesAmount.With(nil).Set(float64(amount))
}

// IncHits implements MetricsCollector.
func (pm *PrometheusMetrics) IncHits() {
	pm.HitsTotal.With(nil).Inc()
}

// IncMisses implements MetricsCollector.
func (pm *PrometheusMetrics) IncMisses() {
	pm.MissesTotal.With(nil).Inc()
}

// AddEvictions implements MetricsCollector.
func (pm *PrometheusMetrics) AddEvictions(n int) {
	pm.EvictionsTotal.With(nil).Add(float64(n))
}

type disabledMetrics struct{}

func (disabledMetrics) SetAmount(int)    {}
func (disabledMetrics) IncHits()         {}
func (disabledMetrics) IncMisses()       {}
func (disabledMetrics) AddEvictions(int) {}
