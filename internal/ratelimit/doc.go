/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit provides rate limiting algorithms for outgoing requests.
//
// Supported algorithms:
//   - token bucket (golang.org/x/time/rate)
//   - leaky bucket, GCRA variant (github.com/throttled/throttled/v2)
//   - sliding window (github.com/RussellLuo/slidingwindow)
//
// Limits may be applied globally or per key (e.g., per remote host), keys are kept in an LRU cache.
package ratelimit
