/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package retry runs operations with retries according to backoff policies.
package retry

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// IsRetryable defines a func that can tell if error is retryable as opposed to persistent.
type IsRetryable func(error) bool

// RetryableFunc is function that does some work and can be potentially retried.
type RetryableFunc func(ctx context.Context) error

// NotifyFunc is called before every retry attempt with the error of the previous attempt,
// the number of the upcoming retry attempt (starting from 1) and the delay before it.
type NotifyFunc func(err error, attempt int, delay time.Duration)

// Policy defines backoff strategy.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// DoWithRetry executes fn with retry according to policy p and with respect to context ctx.
// IsRetryable defines which errors lead to retry attempt (can be nil for any error).
// Notify can be nil if no notifications required.
// If ctx is done while waiting for the next attempt, the context error is returned.
func DoWithRetry(ctx context.Context, p Policy, isRetryable IsRetryable, notify NotifyFunc, fn RetryableFunc) error {
	bctx := backoff.WithContext(p.NewBackOff(), ctx)
	op := func() error {
		err := fn(bctx.Context())
		if err != nil && isRetryable != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	var backoffNotify backoff.Notify
	if notify != nil {
		attempt := 0
		backoffNotify = func(err error, delay time.Duration) {
			attempt++
			notify(err, attempt, delay)
		}
	}
	return backoff.RetryNotify(op, bctx, backoffNotify)
}

// IsTemporaryError reports whether err is a temporary (e.g., network) error or an unexpected EOF.
// It may be used as IsRetryable.
func IsTemporaryError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var terr interface{ Temporary() bool }
	return errors.As(err, &terr) && terr.Temporary()
}

// The PolicyFunc type is an adapter to allow the use of ordinary functions as retry.Policy.
type PolicyFunc func() backoff.BackOff

// NewBackOff implements retry.Policy.
func (f PolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// NoRetryPolicy makes DoWithRetry call the function only once.
var NoRetryPolicy = PolicyFunc(func() backoff.BackOff { return &backoff.StopBackOff{} })

// ExponentialBackoffPolicy means repeat up to MaxAttempts times with exponentially growing delays.
type ExponentialBackoffPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration // zero means backoff.DefaultMaxInterval
	Multiplier      float64       // zero means backoff.DefaultMultiplier
	Jitter          float64       // randomization factor, zero means no jitter
	MaxAttempts     int           // max number of retries, zero or negative means unlimited
}

// NewExponentialBackoffPolicy returns an exponential backoff policy with given initial interval and max retry attempt count.
func NewExponentialBackoffPolicy(initialInterval time.Duration, maxRetryAttempts int) ExponentialBackoffPolicy {
	return ExponentialBackoffPolicy{InitialInterval: initialInterval, MaxAttempts: maxRetryAttempts}
}

// NewBackOff implements retry.Policy.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 0 {
		eb.Multiplier = p.Multiplier
	}
	eb.RandomizationFactor = p.Jitter
	eb.MaxElapsedTime = 0 // attempts are limited by MaxAttempts
	var bf backoff.BackOff = eb
	if p.MaxAttempts > 0 {
		bf = backoff.WithMaxRetries(eb, uint64(p.MaxAttempts))
	}
	bf.Reset()
	return bf
}

// ConstantBackoffPolicy means repeat up to max times with constant interval delays.
type ConstantBackoffPolicy struct {
	interval    time.Duration
	maxAttempts int
}

// NewConstantBackoffPolicy returns a constant backoff policy with given interval and max retry attempt count.
func NewConstantBackoffPolicy(interval time.Duration, maxRetryAttempts int) ConstantBackoffPolicy {
	return ConstantBackoffPolicy{interval, maxRetryAttempts}
}

// NewBackOff implements retry.Policy.
func (p ConstantBackoffPolicy) NewBackOff() backoff.BackOff {
	var bf backoff.BackOff = backoff.NewConstantBackOff(p.interval)
	if p.maxAttempts > 0 {
		bf = backoff.WithMaxRetries(bf, uint64(p.maxAttempts))
	}
	bf.Reset()
	return bf
}
