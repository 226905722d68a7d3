/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-utilkit/lrucache"
	"github.com/acronis/go-utilkit/testutil"
)

type keyedFiring struct {
	key string
	at  time.Duration
}

func TestKeyedDebouncer(t *testing.T) {
	rec := newActionRecorder()
	var firings []keyedFiring
	action := func(_ context.Context, key string) error {
		firings = append(firings, keyedFiring{key: key, at: rec.scheduler.Now().Sub(testStart)})
		return nil
	}
	kd, err := NewKeyedDebouncer[string, string](action, 100*ms,
		DebouncerOpts{Options: DefaultDebounceOptions(), Scheduler: rec.scheduler}, KeyedOpts{})
	require.NoError(t, err)

	require.NoError(t, kd.Call(context.Background(), "alice", "alice"))
	require.NoError(t, rec.callAt(50*ms, func() error { return kd.Call(context.Background(), "bob", "bob") }))
	require.NoError(t, rec.callAt(80*ms, func() error { return kd.Call(context.Background(), "alice", "alice") }))
	require.Equal(t, 2, kd.Len())
	rec.scheduler.Advance(time.Second)

	require.Equal(t, []keyedFiring{{key: "bob", at: 150 * ms}, {key: "alice", at: 180 * ms}}, firings)
}

func TestKeyedDebouncer_CancelAndFlush(t *testing.T) {
	rec := newActionRecorder()
	var fired []string
	kd, err := NewKeyedDebouncer[int, string](func(_ context.Context, arg string) error {
		fired = append(fired, arg)
		return nil
	}, 100*ms, DebouncerOpts{Options: DefaultDebounceOptions(), Scheduler: rec.scheduler}, KeyedOpts{})
	require.NoError(t, err)

	require.NoError(t, kd.Call(context.Background(), 1, "one"))
	require.NoError(t, kd.Call(context.Background(), 2, "two"))
	require.NoError(t, kd.Call(context.Background(), 3, "three"))

	kd.Cancel(1)
	require.Equal(t, 2, kd.Len())
	require.NoError(t, kd.Flush(2))
	require.NoError(t, kd.Flush(42)) // unknown key
	require.Equal(t, []string{"two"}, fired)

	kd.CancelAll()
	require.Equal(t, 0, kd.Len())
	rec.scheduler.Advance(time.Second)
	require.Equal(t, []string{"two"}, fired)
}

func TestKeyedDebouncer_EvictionCancelsPendingFiring(t *testing.T) {
	rec := newActionRecorder()
	var fired []string
	cacheMetrics := lrucache.NewPrometheusMetrics()
	kd, err := NewKeyedDebouncer[string, string](func(_ context.Context, arg string) error {
		fired = append(fired, arg)
		return nil
	}, 100*ms, DebouncerOpts{Options: DefaultDebounceOptions(), Scheduler: rec.scheduler},
		KeyedOpts{MaxKeys: 1, CacheMetricsCollector: cacheMetrics})
	require.NoError(t, err)

	require.NoError(t, kd.Call(context.Background(), "a", "a"))
	require.NoError(t, kd.Call(context.Background(), "b", "b"))
	require.Equal(t, 1, kd.Len())
	rec.scheduler.Advance(time.Second)

	require.Equal(t, []string{"b"}, fired)
	testutil.RequireCounterValue(t, cacheMetrics.EvictionsTotal, 1)
}

func TestKeyedThrottler(t *testing.T) {
	rec := newActionRecorder()
	var firings []keyedFiring
	kt, err := NewKeyedThrottler[string, string](func(_ context.Context, key string) error {
		firings = append(firings, keyedFiring{key: key, at: rec.scheduler.Now().Sub(testStart)})
		return nil
	}, 100*ms, ThrottlerOpts{Options: Options{Leading: true}, Scheduler: rec.scheduler, Clock: rec.scheduler}, KeyedOpts{})
	require.NoError(t, err)

	for _, at := range []time.Duration{0, 20 * ms, 40 * ms, 160 * ms} {
		require.NoError(t, rec.callAt(at, func() error { return kt.Call(context.Background(), "x", "x") }))
		require.NoError(t, kt.Call(context.Background(), "y", "y"))
	}
	rec.scheduler.Advance(time.Second)

	require.Equal(t, []keyedFiring{
		{key: "x", at: 0}, {key: "y", at: 0},
		{key: "x", at: 160 * ms}, {key: "y", at: 160 * ms},
	}, firings)

	require.NoError(t, kt.Flush("x"))
	kt.Cancel("x")
	require.Equal(t, 1, kt.Len())
}

func TestNewKeyed_Errors(t *testing.T) {
	noop := func(context.Context, int) error { return nil }

	_, err := NewKeyedDebouncer[string, int](noop, -ms, DefaultDebouncerOpts(), KeyedOpts{})
	require.ErrorIs(t, err, ErrNegativeWindow)

	_, err = NewKeyedThrottler[string, int](noop, -ms, DefaultThrottlerOpts(), KeyedOpts{})
	require.ErrorIs(t, err, ErrNegativeWindow)

	_, err = NewKeyedThrottler[string, int](noop, ms, DefaultThrottlerOpts(), KeyedOpts{MaxKeys: -1})
	require.Error(t, err)
}
