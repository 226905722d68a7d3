/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import (
	"context"
	"sync"
	"time"

	"github.com/acronis/go-utilkit/log"
)

// Edge identifies why the action fired.
type Edge string

// Firing edges.
const (
	EdgeLeading  Edge = "leading"
	EdgeTrailing Edge = "trailing"
	EdgeFlush    Edge = "flush"
)

type invocation[T any] struct {
	ctx context.Context
	arg T
}

// controller holds the state shared by Debouncer and Throttler:
// the pending invocation record and at most one armed timer.
// Every armed timer gets a new generation, and a timer callback whose generation
// is not current anymore does nothing, so disarming is effective immediately
// even if the scheduler has already started running the callback.
type controller[T any] struct {
	action Action[T]
	window time.Duration
	settings

	mu      sync.Mutex
	stop    func() bool // non-nil while a timer is armed
	gen     uint64
	pending *invocation[T]
}

// arm must be called with mu held.
func (c *controller[T]) arm(delay time.Duration, onFire func(gen uint64)) {
	c.gen++
	gen := c.gen
	c.stop = c.scheduler.Schedule(delay, func() { onFire(gen) })
}

// disarm must be called with mu held.
func (c *controller[T]) disarm() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	c.gen++
}

// claimTimer reports whether the timer of the given generation is still current and,
// if so, marks it as fired. Must be called with mu held.
func (c *controller[T]) claimTimer(gen uint64) bool {
	if c.stop == nil || gen != c.gen {
		return false
	}
	c.stop = nil
	return true
}

// fire runs the action without holding the lock.
// Errors of synchronous firings are returned to the caller,
// errors of scheduled firings are passed to the error handler.
func (c *controller[T]) fire(inv *invocation[T], edge Edge, synchronous bool) error {
	c.metrics.IncFires(edge)
	c.logger.AtLevel(log.LevelDebug, func(logFunc log.LogFunc) {
		logFunc("firing action", log.String("edge", string(edge)))
	})
	err := c.action(inv.ctx, inv.arg)
	if err == nil {
		return nil
	}
	c.metrics.IncActionErrors(edge)
	if !synchronous {
		c.onError(inv.ctx, err)
	}
	return err
}

func (c *controller[T]) cancelled(hadWork bool) {
	if !hadWork {
		return
	}
	c.metrics.IncCancels()
	c.logger.Debug("pending action firing cancelled")
}
