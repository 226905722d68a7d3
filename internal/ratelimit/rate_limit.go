/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Rate-limiting algorithms.
const (
	AlgTokenBucket   = "token_bucket"
	AlgLeakyBucket   = "leaky_bucket"
	AlgSlidingWindow = "sliding_window"
)

// ErrWouldExceedDeadline is returned by Wait when the next request is allowed only after the context deadline.
var ErrWouldExceedDeadline = errors.New("rate limit wait would exceed context deadline")

// Rate describes the frequency of requests.
type Rate struct {
	Count    int
	Duration time.Duration
}

// ParseRate parses a rate in the N/(s|m|h) format, for example 10/s, 100/m, 1000/h.
func ParseRate(s string) (Rate, error) {
	incorrectFormatErr := fmt.Errorf(
		"incorrect format for rate %q, should be N/(s|m|h), for example 10/s, 100/m, 1000/h", s)
	countStr, unit, ok := strings.Cut(s, "/")
	if !ok {
		return Rate{}, incorrectFormatErr
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || count <= 0 {
		return Rate{}, incorrectFormatErr
	}
	var dur time.Duration
	switch strings.ToLower(unit) {
	case "s":
		dur = time.Second
	case "m":
		dur = time.Minute
	case "h":
		dur = time.Hour
	default:
		return Rate{}, incorrectFormatErr
	}
	return Rate{Count: count, Duration: dur}, nil
}

// String returns a string representation of the rate.
func (r Rate) String() string {
	if r.Duration == 0 && r.Count == 0 {
		return ""
	}
	var d string
	switch r.Duration {
	case time.Second:
		d = "s"
	case time.Minute:
		d = "m"
	case time.Hour:
		d = "h"
	default:
		d = r.Duration.String()
	}
	return fmt.Sprintf("%d/%s", r.Count, d)
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
// It makes Rate usable in YAML and JSON documents and in mapstructure decoding.
func (r *Rate) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = Rate{}
		return nil
	}
	parsed, err := ParseRate(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MarshalText implements the encoding.TextMarshaler interface.
func (r Rate) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Limiter interface defines the rate limiting contract.
type Limiter interface {
	Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)
}

// New creates a limiter implementing the given algorithm.
// Burst is ignored by the sliding window algorithm. Zero maxKeys means the limit is global and keys are ignored.
func New(alg string, rate Rate, burst, maxKeys int) (Limiter, error) {
	if rate.Count <= 0 || rate.Duration <= 0 {
		return nil, fmt.Errorf("rate should be positive")
	}
	if maxKeys < 0 {
		return nil, fmt.Errorf("max keys cannot be negative")
	}
	switch alg {
	case AlgTokenBucket, "":
		return NewTokenBucketLimiter(rate, burst, maxKeys)
	case AlgLeakyBucket:
		return NewLeakyBucketLimiter(rate, burst, maxKeys)
	case AlgSlidingWindow:
		return NewSlidingWindowLimiter(rate, maxKeys)
	default:
		return nil, fmt.Errorf("unknown rate limiting algorithm %q", alg)
	}
}

// Wait blocks until the limiter allows a request for the key or ctx is done.
func Wait(ctx context.Context, lim Limiter, key string) error {
	for {
		allow, retryAfter, err := lim.Allow(ctx, key)
		if err != nil {
			return err
		}
		if allow {
			return nil
		}
		if retryAfter <= 0 {
			retryAfter = time.Millisecond
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < retryAfter {
			return ErrWouldExceedDeadline
		}
		timer := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
