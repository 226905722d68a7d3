/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratecontrol

import (
	"context"
	"fmt"
	"time"

	"github.com/acronis/go-utilkit/lrucache"
)

// DefaultMaxKeys is the default maximum number of keys tracked by keyed controllers.
const DefaultMaxKeys = 10000

// canceler is implemented by both Debouncer and Throttler.
type canceler interface {
	Cancel()
}

// keyedControllers keeps one controller per key in an LRU cache.
// Controllers that leave the cache are cancelled, so their pending firings are dropped.
type keyedControllers[K comparable, C canceler] struct {
	store   *lrucache.LRUCache[K, C]
	newCtrl func(key K) C
}

func newKeyedControllers[K comparable, C canceler](
	maxKeys int, cacheMetrics lrucache.MetricsCollector, newCtrl func(key K) C,
) (*keyedControllers[K, C], error) {
	if maxKeys == 0 {
		maxKeys = DefaultMaxKeys
	}
	store, err := lrucache.NewWithOpts[K, C](maxKeys, cacheMetrics, lrucache.Options[K, C]{
		OnRemoved: func(_ K, ctrl C, _ lrucache.RemovalReason) { ctrl.Cancel() },
	})
	if err != nil {
		return nil, fmt.Errorf("new LRU in-memory store for keys: %w", err)
	}
	return &keyedControllers[K, C]{store: store, newCtrl: newCtrl}, nil
}

func (kc *keyedControllers[K, C]) get(key K) C {
	ctrl, _ := kc.store.GetOrAdd(key, func() C { return kc.newCtrl(key) })
	return ctrl
}

// Cancel cancels the controller of the given key and forgets it.
func (kc *keyedControllers[K, C]) Cancel(key K) {
	kc.store.Remove(key)
}

// CancelAll cancels all controllers and forgets them.
func (kc *keyedControllers[K, C]) CancelAll() {
	kc.store.Purge()
}

// Len returns the number of tracked keys.
func (kc *keyedControllers[K, C]) Len() int {
	return kc.store.Len()
}

// KeyedOpts represents options for keyed controllers.
type KeyedOpts struct {
	// MaxKeys is the maximum number of keys tracked at the same time.
	// When it's exceeded, the controller of the least recently used key is cancelled and forgotten.
	// DefaultMaxKeys is used by default.
	MaxKeys int

	// CacheMetricsCollector collects metrics of the underlying LRU cache. Metrics are disabled by default.
	CacheMetricsCollector lrucache.MetricsCollector
}

// KeyedDebouncer maintains a separate Debouncer for each key (e.g., per user or per event type).
type KeyedDebouncer[K comparable, T any] struct {
	*keyedControllers[K, *Debouncer[T]]
}

// NewKeyedDebouncer creates a new KeyedDebouncer.
// All per-key debouncers share the action, the window and the debouncer options.
func NewKeyedDebouncer[K comparable, T any](
	action Action[T], window time.Duration, opts DebouncerOpts, keyedOpts KeyedOpts,
) (*KeyedDebouncer[K, T], error) {
	if err := checkWindow(window); err != nil {
		return nil, err
	}
	kc, err := newKeyedControllers[K, *Debouncer[T]](keyedOpts.MaxKeys, keyedOpts.CacheMetricsCollector,
		func(_ K) *Debouncer[T] {
			d, _ := NewDebouncerWithOpts(action, window, opts) // window is already validated
			return d
		})
	if err != nil {
		return nil, err
	}
	return &KeyedDebouncer[K, T]{kc}, nil
}

// Call calls the debouncer of the given key.
func (kd *KeyedDebouncer[K, T]) Call(ctx context.Context, key K, arg T) error {
	return kd.get(key).Call(ctx, arg)
}

// Flush flushes the debouncer of the given key if it exists.
func (kd *KeyedDebouncer[K, T]) Flush(key K) error {
	if d, ok := kd.store.Get(key); ok {
		return d.Flush()
	}
	return nil
}

// KeyedThrottler maintains a separate Throttler for each key (e.g., per user or per event type).
type KeyedThrottler[K comparable, T any] struct {
	*keyedControllers[K, *Throttler[T]]
}

// NewKeyedThrottler creates a new KeyedThrottler.
// All per-key throttlers share the action, the window and the throttler options.
func NewKeyedThrottler[K comparable, T any](
	action Action[T], window time.Duration, opts ThrottlerOpts, keyedOpts KeyedOpts,
) (*KeyedThrottler[K, T], error) {
	if err := checkWindow(window); err != nil {
		return nil, err
	}
	kc, err := newKeyedControllers[K, *Throttler[T]](keyedOpts.MaxKeys, keyedOpts.CacheMetricsCollector,
		func(_ K) *Throttler[T] {
			t, _ := NewThrottlerWithOpts(action, window, opts) // window is already validated
			return t
		})
	if err != nil {
		return nil, err
	}
	return &KeyedThrottler[K, T]{kc}, nil
}

// Call calls the throttler of the given key.
func (kt *KeyedThrottler[K, T]) Call(ctx context.Context, key K, arg T) error {
	return kt.get(key).Call(ctx, arg)
}

// Flush flushes the throttler of the given key if it exists.
func (kt *KeyedThrottler[K, T]) Flush(key K) error {
	if t, ok := kt.store.Get(key); ok {
		return t.Flush()
	}
	return nil
}
