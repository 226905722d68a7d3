/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"container/list"
	"fmt"
	"sync"
)

type cacheEntry[K comparable, V any] struct {
	key   K
	value V
}

// RemovalReason describes why an entry has left the cache.
type RemovalReason int

// Removal reasons.
const (
	RemovalReasonEvicted RemovalReason = iota
	RemovalReasonRemoved
	RemovalReasonPurged
)

// LRUCache represents an LRU cache with eviction mechanism and Prometheus metrics.
type LRUCache[K comparable, V any] struct {
	maxEntries int
	onRemoved  func(key K, value V, reason RemovalReason)

	mu      sync.Mutex
	lruList *list.List
	cache   map[K]*list.Element // map of cache entries, value is a lruList element

	metricsCollector MetricsCollector
}

// Options represents options for the cache.
type Options[K comparable, V any] struct {
	// OnRemoved is called for every entry that leaves the cache (evicted, removed or purged).
	// It's called after the cache lock is released, so it may access the cache.
	OnRemoved func(key K, value V, reason RemovalReason)
}

// New creates a new LRUCache with the provided maximum number of entries and metrics collector.
func New[K comparable, V any](maxEntries int, metricsCollector MetricsCollector) (*LRUCache[K, V], error) {
	return NewWithOpts[K, V](maxEntries, metricsCollector, Options[K, V]{})
}

// NewWithOpts creates a new LRUCache with the provided maximum number of entries, metrics collector, and options.
// Metrics collector is used to collect statistics about cache usage.
// It can be nil, in this case, metrics will be disabled.
func NewWithOpts[K comparable, V any](
	maxEntries int, metricsCollector MetricsCollector, opts Options[K, V],
) (*LRUCache[K, V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be greater than 0")
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	return &LRUCache[K, V]{
		maxEntries:       maxEntries,
		onRemoved:        opts.OnRemoved,
		lruList:          list.New(),
		cache:            make(map[K]*list.Element),
		metricsCollector: metricsCollector,
	}, nil
}

// Get returns a value from the cache by the provided key.
func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, hit := c.cache[key]
	if !hit {
		c.metricsCollector.IncMisses()
		return value, false
	}
	c.lruList.MoveToFront(elem)
	c.metricsCollector.IncHits()
	return elem.Value.(*cacheEntry[K, V]).value, true
}

// Add adds a value to the cache with the provided key.
// If the cache is full, the least recently used entry is evicted.
// The replaced value of the existing key is not reported as removed.
func (c *LRUCache[K, V]) Add(key K, value V) {
	c.mu.Lock()
	if elem, ok := c.cache[key]; ok {
		c.lruList.MoveToFront(elem)
		elem.Value.(*cacheEntry[K, V]).value = value
		c.mu.Unlock()
		return
	}
	evicted := c.addNew(key, value)
	c.mu.Unlock()

	c.notify(evicted, RemovalReasonEvicted)
}

// GetOrAdd returns a value from the cache by the provided key.
// If the key does not exist, it adds a new value returned by valueProvider to the cache.
// valueProvider is called under the cache lock and must not access the cache.
func (c *LRUCache[K, V]) GetOrAdd(key K, valueProvider func() V) (value V, exists bool) {
	c.mu.Lock()
	if elem, hit := c.cache[key]; hit {
		c.lruList.MoveToFront(elem)
		c.metricsCollector.IncHits()
		c.mu.Unlock()
		return elem.Value.(*cacheEntry[K, V]).value, true
	}
	c.metricsCollector.IncMisses()
	value = valueProvider()
	evicted := c.addNew(key, value)
	c.mu.Unlock()

	c.notify(evicted, RemovalReasonEvicted)
	return value, false
}

// Remove removes a value from the cache by the provided key.
func (c *LRUCache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	elem, ok := c.cache[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.lruList.Remove(elem)
	delete(c.cache, key)
	c.metricsCollector.SetAmount(len(c.cache))
	c.mu.Unlock()

	c.notify([]*cacheEntry[K, V]{elem.Value.(*cacheEntry[K, V])}, RemovalReasonRemoved)
	return true
}

// Purge clears the cache.
// Removed entries are not counted as evictions.
func (c *LRUCache[K, V]) Purge() {
	c.mu.Lock()
	var purged []*cacheEntry[K, V]
	if c.onRemoved != nil {
		purged = make([]*cacheEntry[K, V], 0, len(c.cache))
		for elem := c.lruList.Back(); elem != nil; elem = elem.Prev() {
			purged = append(purged, elem.Value.(*cacheEntry[K, V]))
		}
	}
	c.cache = make(map[K]*list.Element)
	c.lruList.Init()
	c.metricsCollector.SetAmount(0)
	c.mu.Unlock()

	c.notify(purged, RemovalReasonPurged)
}

// Len returns the number of items in the cache.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

func (c *LRUCache[K, V]) addNew(key K, value V) (evicted []*cacheEntry[K, V]) {
	c.cache[key] = c.lruList.PushFront(&cacheEntry[K, V]{key: key, value: value})
	if len(c.cache) <= c.maxEntries {
		c.metricsCollector.SetAmount(len(c.cache))
		return nil
	}
	if entry := c.removeOldest(); entry != nil {
		c.metricsCollector.AddEvictions(1)
		evicted = append(evicted, entry)
	}
	c.metricsCollector.SetAmount(len(c.cache))
	return evicted
}

func (c *LRUCache[K, V]) removeOldest() *cacheEntry[K, V] {
	elem := c.lruList.Back()
	if elem == nil {
		return nil
	}
	c.lruList.Remove(elem)
	entry := elem.Value.(*cacheEntry[K, V])
	delete(c.cache, entry.key)
	return entry
}

func (c *LRUCache[K, V]) notify(entries []*cacheEntry[K, V], reason RemovalReason) {
	if c.onRemoved == nil {
		return
	}
	for _, entry := range entries {
		c.onRemoved(entry.key, entry.value, reason)
	}
}
