/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package ratecontrol provides debounce and throttle wrappers that control how often an action runs
// in response to a rapid stream of calls.
//
// Debouncer postpones the action until the calls stop arriving for the configured window,
// Throttler runs the action at most once per window.
// Both support leading and trailing edge firing, cancellation, flushing,
// Prometheus metrics and per-key variants bounded by an LRU cache.
package ratecontrol
