/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import "time"

// Scheduler runs delayed callbacks.
// Schedule arms fn to run once after delay and returns a function that disarms it.
// The returned stop function reports whether the callback was prevented from running.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) (stop func() bool)
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// SchedulerFunc is an adapter to allow the use of ordinary functions as Scheduler.
type SchedulerFunc func(delay time.Duration, fn func()) (stop func() bool)

// Schedule implements Scheduler interface.
func (f SchedulerFunc) Schedule(delay time.Duration, fn func()) (stop func() bool) {
	return f(delay, fn)
}

// SystemScheduler schedules callbacks with time.AfterFunc.
// Callbacks are executed in their own goroutines.
var SystemScheduler Scheduler = SchedulerFunc(func(delay time.Duration, fn func()) func() bool {
	return time.AfterFunc(delay, fn).Stop
})

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is a Clock that returns time.Now().
var SystemClock Clock = systemClock{}
