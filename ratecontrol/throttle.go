/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import (
	"context"
	"time"

	"github.com/acronis/go-utilkit/log"
)

// ThrottlerOpts represents options for Throttler.
type ThrottlerOpts struct {
	// Options determines on which edges the action fires.
	Options

	// Name identifies the throttler in logs.
	Name string

	// Scheduler is used for arming delayed firings. SystemScheduler is used by default.
	Scheduler Scheduler

	// Clock is used for measuring the time elapsed since the last firing. SystemClock is used by default.
	Clock Clock

	// Logger is used for logging. Disabled logger is used by default.
	Logger log.FieldLogger

	// ErrorHandler receives errors of the trailing firings.
	// By default, such errors are logged at the "error" level.
	ErrorHandler ErrorHandler

	// MetricsCollector is used for collecting metrics. Metrics are disabled by default.
	MetricsCollector MetricsCollector
}

// DefaultThrottlerOpts returns options with DefaultThrottleOptions edges.
func DefaultThrottlerOpts() ThrottlerOpts {
	return ThrottlerOpts{Options: DefaultThrottleOptions()}
}

// Throttler fires the action at most once per window.
type Throttler[T any] struct {
	controller[T]
	lastFire    time.Time
	hasLastFire bool
}

// NewThrottler creates a new Throttler that fires the action on both leading and trailing edges.
func NewThrottler[T any](action Action[T], window time.Duration) (*Throttler[T], error) {
	return NewThrottlerWithOpts(action, window, DefaultThrottlerOpts())
}

// NewThrottlerWithOpts creates a new Throttler with the provided options.
func NewThrottlerWithOpts[T any](action Action[T], window time.Duration, opts ThrottlerOpts) (*Throttler[T], error) {
	if err := checkWindow(window); err != nil {
		return nil, err
	}
	return &Throttler[T]{controller: controller[T]{
		action:   action,
		window:   window,
		settings: makeSettings(opts.Options, opts.Name, opts.Scheduler, opts.Clock, opts.Logger, opts.ErrorHandler, opts.MetricsCollector),
	}}, nil
}

// Call requests the action to be fired with the given context and argument.
// If the window since the last firing has elapsed, the action fires synchronously and its error is returned.
// Otherwise, the call is recorded, so the trailing firing (if enabled) uses the arguments of the latest call.
func (t *Throttler[T]) Call(ctx context.Context, arg T) error {
	t.metrics.IncCalls()
	inv := &invocation[T]{ctx: ctx, arg: arg}

	t.mu.Lock()
	now := t.clock.Now() // read under the lock, so concurrent calls observe lastFire in time order
	if !t.hasLastFire && !t.edges.Leading {
		t.lastFire, t.hasLastFire = now, true
	}
	var remaining time.Duration
	if t.hasLastFire {
		remaining = t.window - now.Sub(t.lastFire)
	}
	// remaining > window means the clock went backwards.
	if remaining <= 0 || remaining > t.window {
		t.disarm()
		t.pending = nil
		t.lastFire, t.hasLastFire = now, true
		t.mu.Unlock()
		return t.fire(inv, EdgeLeading, true)
	}
	if t.edges.Trailing {
		t.pending = inv
		if t.stop == nil {
			t.arm(remaining, t.onTimer)
		}
	}
	t.mu.Unlock()
	return nil
}

func (t *Throttler[T]) onTimer(gen uint64) {
	t.mu.Lock()
	if !t.claimTimer(gen) {
		t.mu.Unlock()
		return
	}
	inv := t.pending
	t.pending = nil
	if inv != nil {
		t.lastFire, t.hasLastFire = t.clock.Now(), true
	}
	t.mu.Unlock()

	if inv != nil {
		_ = t.fire(inv, EdgeTrailing, false)
	}
}

// Cancel disarms the trailing timer, forgets the last firing time and discards the recorded call.
// The action is not fired. It is safe to call Cancel when nothing is pending.
func (t *Throttler[T]) Cancel() {
	t.mu.Lock()
	hadWork := t.stop != nil || t.pending != nil
	t.disarm()
	t.pending = nil
	t.lastFire, t.hasLastFire = time.Time{}, false
	t.mu.Unlock()

	t.cancelled(hadWork)
}

// Flush immediately fires the pending trailing call, if any.
// The error of the action is returned.
func (t *Throttler[T]) Flush() error {
	t.mu.Lock()
	if t.stop == nil || t.pending == nil {
		t.mu.Unlock()
		return nil
	}
	inv := t.pending
	t.disarm()
	t.pending = nil
	t.lastFire, t.hasLastFire = t.clock.Now(), true
	t.mu.Unlock()

	return t.fire(inv, EdgeFlush, true)
}

// Pending reports whether a trailing firing is scheduled.
func (t *Throttler[T]) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil && t.pending != nil
}
