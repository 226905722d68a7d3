/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// CollectedValue returns the value of the single metric (counter or gauge) collected from c.
// Unlike testutil.ToFloat64 from Prometheus, it returns 0 when nothing has been collected yet,
// which is the case for a vector that was never touched.
func CollectedValue(c prometheus.Collector) float64 {
	if promtestutil.CollectAndCount(c) == 0 {
		return 0
	}
	return promtestutil.ToFloat64(c)
}

// AssertCounterValue asserts that the metric collected from c has the expected value.
func AssertCounterValue(t assert.TestingT, c prometheus.Collector, wantValue int) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return assert.Equal(t, wantValue, int(CollectedValue(c)))
}

// RequireCounterValue calls AssertCounterValue and fails test immediately in case of error.
func RequireCounterValue(t require.TestingT, c prometheus.Collector, wantValue int) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if AssertCounterValue(t, c, wantValue) {
		return
	}
	t.FailNow()
}

// AssertSamplesCountInHistogram asserts that passed prometheus.Observer (histogram or its vector child)
// contains the specified number of samples.
func AssertSamplesCountInHistogram(t assert.TestingT, hist prometheus.Collector, wantSamplesCount int) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	reg := prometheus.NewPedanticRegistry()
	if !assert.NoError(t, reg.Register(hist)) {
		return false
	}
	gotMetrics, err := reg.Gather()
	if !assert.NoError(t, err) {
		return false
	}
	if wantSamplesCount == 0 && len(gotMetrics) == 0 {
		return true
	}
	if !assert.Equal(t, 1, len(gotMetrics)) || !assert.Equal(t, 1, len(gotMetrics[0].GetMetric())) {
		return false
	}
	return assert.Equal(t, wantSamplesCount, int(gotMetrics[0].GetMetric()[0].GetHistogram().GetSampleCount()))
}

// RequireSamplesCountInHistogram calls AssertSamplesCountInHistogram and fails test immediately in case of error.
func RequireSamplesCountInHistogram(t require.TestingT, hist prometheus.Collector, wantSamplesCount int) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if AssertSamplesCountInHistogram(t, hist, wantSamplesCount) {
		return
	}
	t.FailNow()
}
