/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import (
	"context"
	"errors"
	"time"

	"github.com/acronis/go-utilkit/log"
)

// ErrNegativeWindow is returned by constructors when the window is negative.
var ErrNegativeWindow = errors.New("window must be greater than or equal to 0")

// Action is a function wrapped by Debouncer and Throttler.
// The context and the argument of the call that triggered the firing are passed to it.
type Action[T any] func(ctx context.Context, arg T) error

// ErrorHandler receives errors returned by the action when it fires from a scheduled callback
// (i.e., there is no caller to return the error to).
type ErrorHandler func(ctx context.Context, err error)

// Options determines on which edges of a burst the action fires.
type Options struct {
	// Leading makes the action fire on the first call of a burst.
	Leading bool

	// Trailing makes the action fire when the window expires after the last call of a burst.
	Trailing bool
}

// DefaultDebounceOptions returns edge options used by NewDebouncer: trailing edge only.
func DefaultDebounceOptions() Options {
	return Options{Leading: false, Trailing: true}
}

// DefaultThrottleOptions returns edge options used by NewThrottler: both leading and trailing edges.
func DefaultThrottleOptions() Options {
	return Options{Leading: true, Trailing: true}
}

// settings holds the normalized dependencies shared by Debouncer and Throttler.
type settings struct {
	edges     Options
	scheduler Scheduler
	clock     Clock
	logger    log.FieldLogger
	onError   ErrorHandler
	metrics   MetricsCollector
}

func makeSettings(
	edges Options, name string, scheduler Scheduler, clock Clock,
	logger log.FieldLogger, onError ErrorHandler, metrics MetricsCollector,
) settings {
	if scheduler == nil {
		scheduler = SystemScheduler
	}
	if clock == nil {
		clock = SystemClock
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	if name != "" {
		logger = logger.With(log.String("controller", name))
	}
	if metrics == nil {
		metrics = disabledMetrics{}
	}
	if onError == nil {
		errLogger := logger
		onError = func(_ context.Context, err error) {
			errLogger.Error("delayed action firing failed", log.Error(err))
		}
	}
	return settings{
		edges:     edges,
		scheduler: scheduler,
		clock:     clock,
		logger:    logger,
		onError:   onError,
		metrics:   metrics,
	}
}

func checkWindow(window time.Duration) error {
	if window < 0 {
		return ErrNegativeWindow
	}
	return nil
}
