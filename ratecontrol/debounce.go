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

// DebouncerOpts represents options for Debouncer.
type DebouncerOpts struct {
	// Options determines on which edges the action fires.
	Options

	// Name identifies the debouncer in logs.
	Name string

	// Scheduler is used for arming delayed firings. SystemScheduler is used by default.
	Scheduler Scheduler

	// Logger is used for logging. Disabled logger is used by default.
	Logger log.FieldLogger

	// ErrorHandler receives errors of the trailing firings.
	// By default, such errors are logged at the "error" level.
	ErrorHandler ErrorHandler

	// MetricsCollector is used for collecting metrics. Metrics are disabled by default.
	MetricsCollector MetricsCollector
}

// DefaultDebouncerOpts returns options with DefaultDebounceOptions edges.
func DefaultDebouncerOpts() DebouncerOpts {
	return DebouncerOpts{Options: DefaultDebounceOptions()}
}

// Debouncer postpones the action until window has elapsed since the last call.
type Debouncer[T any] struct {
	controller[T]
	leadingFired bool
}

// NewDebouncer creates a new Debouncer that fires the action on the trailing edge only.
func NewDebouncer[T any](action Action[T], window time.Duration) (*Debouncer[T], error) {
	return NewDebouncerWithOpts(action, window, DefaultDebouncerOpts())
}

// NewDebouncerWithOpts creates a new Debouncer with the provided options.
func NewDebouncerWithOpts[T any](action Action[T], window time.Duration, opts DebouncerOpts) (*Debouncer[T], error) {
	if err := checkWindow(window); err != nil {
		return nil, err
	}
	return &Debouncer[T]{controller: controller[T]{
		action:   action,
		window:   window,
		settings: makeSettings(opts.Options, opts.Name, opts.Scheduler, nil, opts.Logger, opts.ErrorHandler, opts.MetricsCollector),
	}}, nil
}

// Call requests the action to be fired with the given context and argument.
// The call replaces the previously recorded one and restarts the window.
// If the leading edge is enabled and this call starts a new burst, the action fires synchronously
// and its error is returned. Otherwise, Call returns nil.
func (d *Debouncer[T]) Call(ctx context.Context, arg T) error {
	d.metrics.IncCalls()
	inv := &invocation[T]{ctx: ctx, arg: arg}

	d.mu.Lock()
	fireLeading := d.edges.Leading && d.stop == nil && !d.leadingFired
	d.pending = inv
	d.disarm()
	d.arm(d.window, d.onTimer)
	if fireLeading {
		d.pending = nil
		d.leadingFired = true
	}
	d.mu.Unlock()

	if fireLeading {
		return d.fire(inv, EdgeLeading, true)
	}
	return nil
}

func (d *Debouncer[T]) onTimer(gen uint64) {
	d.mu.Lock()
	if !d.claimTimer(gen) {
		d.mu.Unlock()
		return
	}
	inv := d.pending
	d.pending = nil
	d.leadingFired = false
	d.mu.Unlock()

	if inv != nil && d.edges.Trailing {
		_ = d.fire(inv, EdgeTrailing, false)
	}
}

// Cancel discards the pending call and disarms the timer. The action is not fired.
// It is safe to call Cancel when nothing is pending.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	hadWork := d.stop != nil || d.pending != nil
	d.disarm()
	d.pending = nil
	d.leadingFired = false
	d.mu.Unlock()

	d.cancelled(hadWork)
}

// Flush immediately fires the pending trailing call, if any, and settles the burst.
// The error of the action is returned.
func (d *Debouncer[T]) Flush() error {
	d.mu.Lock()
	if d.stop == nil {
		d.mu.Unlock()
		return nil
	}
	inv := d.pending
	d.disarm()
	d.pending = nil
	d.leadingFired = false
	d.mu.Unlock()

	if inv == nil || !d.edges.Trailing {
		return nil
	}
	return d.fire(inv, EdgeFlush, true)
}

// Pending reports whether a trailing firing is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop != nil && d.pending != nil && d.edges.Trailing
}
