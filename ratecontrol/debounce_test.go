/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-utilkit/log/logtest"
	"github.com/acronis/go-utilkit/testutil"
)

func TestDebouncer_Trailing(t *testing.T) {
	tests := []struct {
		name        string
		window      time.Duration
		callsAt     []time.Duration
		advanceTo   time.Duration
		wantFirings []firing
	}{
		{
			name:        "single call followed by silence fires once",
			window:      100 * ms,
			callsAt:     []time.Duration{0},
			advanceTo:   time.Second,
			wantFirings: []firing{{arg: 0, at: 100 * ms}},
		},
		{
			name:        "burst fires once with the last call arguments",
			window:      100 * ms,
			callsAt:     []time.Duration{0, 50 * ms, 99 * ms, 150 * ms},
			advanceTo:   time.Second,
			wantFirings: []firing{{arg: 3, at: 250 * ms}},
		},
		{
			name:        "two bursts fire twice",
			window:      100 * ms,
			callsAt:     []time.Duration{0, 50 * ms, 400 * ms, 450 * ms},
			advanceTo:   time.Second,
			wantFirings: []firing{{arg: 1, at: 150 * ms}, {arg: 3, at: 550 * ms}},
		},
		{
			name:        "nothing fires before the window elapses",
			window:      100 * ms,
			callsAt:     []time.Duration{0, 50 * ms},
			advanceTo:   149 * ms,
			wantFirings: nil,
		},
		{
			name:        "zero window fires once per burst on the next tick",
			window:      0,
			callsAt:     []time.Duration{0, 0, 0},
			advanceTo:   0,
			wantFirings: []firing{{arg: 2, at: 0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newActionRecorder()
			d, err := NewDebouncerWithOpts(rec.action, tt.window, DebouncerOpts{
				Options:   DefaultDebounceOptions(),
				Scheduler: rec.scheduler,
			})
			require.NoError(t, err)

			for i, at := range tt.callsAt {
				require.NoError(t, rec.callAt(at, func() error { return d.Call(context.Background(), i) }))
			}
			rec.scheduler.AdvanceTo(testStart.Add(tt.advanceTo))
			rec.scheduler.Advance(0) // run callbacks that are due exactly at advanceTo

			require.Equal(t, tt.wantFirings, rec.firings)
		})
	}
}

func TestDebouncer_Leading(t *testing.T) {
	t.Run("leading only", func(t *testing.T) {
		rec := newActionRecorder()
		d, err := NewDebouncerWithOpts(rec.action, 100*ms, DebouncerOpts{
			Options:   Options{Leading: true},
			Scheduler: rec.scheduler,
		})
		require.NoError(t, err)

		require.NoError(t, d.Call(context.Background(), 1))
		require.Equal(t, []firing{{arg: 1, at: 0}}, rec.firings, "leading call must fire synchronously")

		for i, at := range []time.Duration{20 * ms, 40 * ms, 130 * ms} {
			require.NoError(t, rec.callAt(at, func() error { return d.Call(context.Background(), 2+i) }))
		}
		rec.scheduler.Advance(time.Second) // burst settles at 230ms

		require.NoError(t, rec.callAt(2*time.Second, func() error { return d.Call(context.Background(), 5) }))
		require.Equal(t, []firing{{arg: 1, at: 0}, {arg: 5, at: 2 * time.Second}}, rec.firings)
	})

	t.Run("leading and trailing", func(t *testing.T) {
		rec := newActionRecorder()
		d, err := NewDebouncerWithOpts(rec.action, 100*ms, DebouncerOpts{
			Options:   Options{Leading: true, Trailing: true},
			Scheduler: rec.scheduler,
		})
		require.NoError(t, err)

		require.NoError(t, d.Call(context.Background(), 1))
		require.NoError(t, rec.callAt(50*ms, func() error { return d.Call(context.Background(), 2) }))
		rec.scheduler.Advance(time.Second)

		require.Equal(t, []firing{{arg: 1, at: 0}, {arg: 2, at: 150 * ms}}, rec.firings)
	})

	t.Run("single call with leading and trailing fires once", func(t *testing.T) {
		rec := newActionRecorder()
		d, err := NewDebouncerWithOpts(rec.action, 100*ms, DebouncerOpts{
			Options:   Options{Leading: true, Trailing: true},
			Scheduler: rec.scheduler,
		})
		require.NoError(t, err)

		require.NoError(t, d.Call(context.Background(), 1))
		require.False(t, d.Pending())
		rec.scheduler.Advance(time.Second)

		require.Equal(t, []firing{{arg: 1, at: 0}}, rec.firings)
	})
}

func TestDebouncer_Cancel(t *testing.T) {
	rec := newActionRecorder()
	metrics := NewPrometheusMetrics()
	d, err := NewDebouncerWithOpts(rec.action, 100*ms, DebouncerOpts{
		Options:          Options{Leading: true, Trailing: true},
		Scheduler:        rec.scheduler,
		MetricsCollector: metrics,
	})
	require.NoError(t, err)

	d.Cancel() // nothing is pending, no-op

	require.NoError(t, d.Call(context.Background(), 1))
	require.NoError(t, rec.callAt(50*ms, func() error { return d.Call(context.Background(), 2) }))
	require.True(t, d.Pending())
	d.Cancel()
	d.Cancel()
	require.False(t, d.Pending())
	require.Equal(t, 0, rec.scheduler.PendingTimers())
	rec.scheduler.Advance(time.Second)
	require.Equal(t, []firing{{arg: 1, at: 0}}, rec.firings, "only the leading call must fire")

	// Cancel resets the leading flag, so the next call starts a new burst.
	require.NoError(t, d.Call(context.Background(), 3))
	require.Equal(t, []firing{{arg: 1, at: 0}, {arg: 3, at: 1050 * ms}}, rec.firings)

	testutil.RequireCounterValue(t, metrics.CancelsTotal, 1)
	testutil.RequireCounterValue(t, metrics.CallsTotal, 3)
	testutil.RequireCounterValue(t, metrics.FiresTotal.WithLabelValues(string(EdgeLeading)), 2)
}

func TestDebouncer_CancelInvalidatesAlreadyStartedTimer(t *testing.T) {
	// The scheduler hands out callbacks that have "already started" and cannot be stopped anymore.
	var callbacks []func()
	scheduler := SchedulerFunc(func(_ time.Duration, fn func()) func() bool {
		callbacks = append(callbacks, fn)
		return func() bool { return false }
	})
	fired := 0
	d, err := NewDebouncerWithOpts(func(context.Context, int) error {
		fired++
		return nil
	}, 100*ms, DebouncerOpts{Options: DefaultDebounceOptions(), Scheduler: scheduler})
	require.NoError(t, err)

	require.NoError(t, d.Call(context.Background(), 1))
	require.NoError(t, d.Call(context.Background(), 2))
	d.Cancel()
	for _, cb := range callbacks {
		cb()
	}
	require.Equal(t, 0, fired)

	callbacks = nil
	require.NoError(t, d.Call(context.Background(), 3))
	require.NoError(t, d.Call(context.Background(), 4))
	for _, cb := range callbacks {
		cb() // only the callback armed by the last call is current
	}
	require.Equal(t, 1, fired)
}

func TestDebouncer_Flush(t *testing.T) {
	rec := newActionRecorder()
	d, err := NewDebouncerWithOpts(rec.action, 100*ms, DebouncerOpts{
		Options:   DefaultDebounceOptions(),
		Scheduler: rec.scheduler,
	})
	require.NoError(t, err)

	require.NoError(t, d.Flush()) // nothing is pending

	require.NoError(t, d.Call(context.Background(), 1))
	require.NoError(t, rec.callAt(10*ms, func() error { return d.Call(context.Background(), 2) }))
	require.True(t, d.Pending())
	require.NoError(t, d.Flush())
	require.False(t, d.Pending())
	rec.scheduler.Advance(time.Second)

	require.Equal(t, []firing{{arg: 2, at: 10 * ms}}, rec.firings)
}

func TestDebouncer_Errors(t *testing.T) {
	actionErr := errors.New("action failed")

	t.Run("leading error is returned to the caller", func(t *testing.T) {
		rec := newActionRecorder()
		rec.err = actionErr
		var handled []error
		d, err := NewDebouncerWithOpts(rec.action, 100*ms, DebouncerOpts{
			Options:      Options{Leading: true},
			Scheduler:    rec.scheduler,
			ErrorHandler: func(_ context.Context, err error) { handled = append(handled, err) },
		})
		require.NoError(t, err)

		require.ErrorIs(t, d.Call(context.Background(), 1), actionErr)
		require.Empty(t, handled)
	})

	t.Run("trailing error is passed to the error handler with the call context", func(t *testing.T) {
		rec := newActionRecorder()
		rec.err = actionErr
		var handledCtxValues []interface{}
		metrics := NewPrometheusMetrics()
		d, err := NewDebouncerWithOpts(rec.action, 100*ms, DebouncerOpts{
			Options:   DefaultDebounceOptions(),
			Scheduler: rec.scheduler,
			ErrorHandler: func(ctx context.Context, err error) {
				require.ErrorIs(t, err, actionErr)
				handledCtxValues = append(handledCtxValues, ctx.Value(ctxKey{}))
			},
			MetricsCollector: metrics,
		})
		require.NoError(t, err)

		require.NoError(t, d.Call(context.WithValue(context.Background(), ctxKey{}, "first"), 1))
		require.NoError(t, d.Call(context.WithValue(context.Background(), ctxKey{}, "second"), 2))
		rec.scheduler.Advance(time.Second)

		require.Equal(t, []interface{}{"second"}, rec.ctxValues)
		require.Equal(t, []interface{}{"second"}, handledCtxValues)
		testutil.RequireCounterValue(t, metrics.ActionErrorsTotal.WithLabelValues(string(EdgeTrailing)), 1)
	})

	t.Run("trailing error is logged by default", func(t *testing.T) {
		rec := newActionRecorder()
		rec.err = actionErr
		logRecorder := logtest.NewRecorder()
		d, err := NewDebouncerWithOpts(rec.action, 100*ms, DebouncerOpts{
			Options:   DefaultDebounceOptions(),
			Name:      "search",
			Scheduler: rec.scheduler,
			Logger:    logRecorder,
		})
		require.NoError(t, err)

		require.NoError(t, d.Call(context.Background(), 1))
		rec.scheduler.Advance(time.Second)

		entry, found := logRecorder.FindEntry("delayed action firing failed")
		require.True(t, found)
		field, found := entry.FindField("controller")
		require.True(t, found)
		require.Equal(t, "search", string(field.Bytes))
	})
}

func TestDebouncer_ActionMayCallDebouncer(t *testing.T) {
	rec := newActionRecorder()
	var d *Debouncer[int]
	var err error
	d, err = NewDebouncerWithOpts(func(ctx context.Context, arg int) error {
		_ = rec.action(ctx, arg)
		if arg == 1 {
			return d.Call(ctx, 2)
		}
		return nil
	}, 100*ms, DebouncerOpts{Options: DefaultDebounceOptions(), Scheduler: rec.scheduler})
	require.NoError(t, err)

	require.NoError(t, d.Call(context.Background(), 1))
	rec.scheduler.Advance(time.Second)

	require.Equal(t, []firing{{arg: 1, at: 100 * ms}, {arg: 2, at: 200 * ms}}, rec.firings)
}

func TestDebouncer_SystemScheduler(t *testing.T) {
	var fired atomic.Int32
	var lastArg atomic.Int32
	d, err := NewDebouncer(func(_ context.Context, arg int32) error {
		fired.Inc()
		lastArg.Store(arg)
		return nil
	}, 20*ms)
	require.NoError(t, err)

	for i := int32(1); i <= 5; i++ {
		require.NoError(t, d.Call(context.Background(), i))
	}
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*ms)
	require.Equal(t, int32(5), lastArg.Load())

	require.NoError(t, d.Call(context.Background(), 6))
	d.Cancel()
	time.Sleep(60 * ms)
	require.Equal(t, int32(1), fired.Load())
}

func TestNewDebouncer_NegativeWindow(t *testing.T) {
	_, err := NewDebouncer(func(context.Context, int) error { return nil }, -time.Second)
	require.ErrorIs(t, err, ErrNegativeWindow)
}
