/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import (
	"context"
	"time"

	"github.com/acronis/go-utilkit/ratecontrol/ratecontroltest"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var (
	_ Scheduler = (*ratecontroltest.ManualScheduler)(nil)
	_ Clock     = (*ratecontroltest.ManualScheduler)(nil)
)

type firing struct {
	arg int
	at  time.Duration // since testStart
}

// actionRecorder records firings of the action together with the manual time they happened at.
type actionRecorder struct {
	scheduler *ratecontroltest.ManualScheduler
	firings   []firing
	ctxValues []interface{}
	err       error
}

func newActionRecorder() *actionRecorder {
	return &actionRecorder{scheduler: ratecontroltest.NewManualScheduler(testStart)}
}

func (r *actionRecorder) action(ctx context.Context, arg int) error {
	r.firings = append(r.firings, firing{arg: arg, at: r.scheduler.Now().Sub(testStart)})
	r.ctxValues = append(r.ctxValues, ctx.Value(ctxKey{}))
	return r.err
}

// callAt advances the manual time to the given offset and makes the call.
func (r *actionRecorder) callAt(at time.Duration, call func() error) error {
	r.scheduler.AdvanceTo(testStart.Add(at))
	return call()
}

type ctxKey struct{}

type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }

const ms = time.Millisecond
