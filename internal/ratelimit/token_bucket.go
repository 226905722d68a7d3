/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/acronis/go-utilkit/lrucache"
)

// TokenBucketLimiter implements the token bucket algorithm. The bucket is refilled with rate.Count tokens
// per rate.Duration and holds up to burst tokens.
type TokenBucketLimiter struct {
	getLimiter func(key string) *rate.Limiter
}

// NewTokenBucketLimiter creates a new token bucket rate limiter.
func NewTokenBucketLimiter(maxRate Rate, burst, maxKeys int) (*TokenBucketLimiter, error) {
	if burst < 1 {
		return nil, fmt.Errorf("burst should be >= 1")
	}
	limit := rate.Every(maxRate.Duration / time.Duration(maxRate.Count))
	if maxKeys == 0 {
		lim := rate.NewLimiter(limit, burst)
		return &TokenBucketLimiter{getLimiter: func(string) *rate.Limiter { return lim }}, nil
	}

	store, err := lrucache.New[string, *rate.Limiter](maxKeys, nil)
	if err != nil {
		return nil, fmt.Errorf("new LRU in-memory store for keys: %w", err)
	}
	return &TokenBucketLimiter{getLimiter: func(key string) *rate.Limiter {
		lim, _ := store.GetOrAdd(key, func() *rate.Limiter { return rate.NewLimiter(limit, burst) })
		return lim
	}}, nil
}

// Allow checks if the request should be allowed based on the rate limit.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	r := l.getLimiter(key).Reserve()
	if !r.OK() {
		return false, 0, fmt.Errorf("token bucket cannot provide a token")
	}
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return false, delay, nil
	}
	return true, 0, nil
}
