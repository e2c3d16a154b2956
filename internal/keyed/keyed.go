// Package keyed provides a bounded get-or-create cache.
//
// A value is computed at most once per key while it stays resident:
// concurrent first callers for the same key share one computation, and a
// failed computation is never stored.
package keyed

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultSize is the capacity used when New is given a non-positive size.
const DefaultSize = 1024

// Stats tracks cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Builds    int64
	Evictions int64
}

// Cache maps string keys to lazily built values.
type Cache[V any] struct {
	entries *lru.Cache[string, V]
	group   singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	builds    atomic.Int64
	evictions atomic.Int64
}

// New creates a cache holding at most size values. Least recently used
// values are evicted once the cache is full.
func New[V any](size int) *Cache[V] {
	if size <= 0 {
		size = DefaultSize
	}
	c := &Cache[V]{}
	// NewWithEvict only fails for a non-positive size.
	c.entries, _ = lru.NewWithEvict[string, V](size, c.onEvicted)
	return c
}

func (c *Cache[V]) onEvicted(string, V) {
	c.evictions.Add(1)
}

// Get returns the cached value for key without building it.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.entries.Get(key)
}

// GetOrCreate returns the value for key, calling build when it is absent.
//
// build runs detached from the caller's cancellation so that a waiter
// giving up does not fail the computation for the others. A caller whose
// ctx ends first returns ctx.Err() and the build keeps going.
func (c *Cache[V]) GetOrCreate(ctx context.Context, key string, build func(context.Context) (V, error)) (V, error) {
	if v, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return v, nil
	}
	c.misses.Add(1)

	buildCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// Another flight may have stored the value between our lookup
		// and joining this one.
		if v, ok := c.entries.Get(key); ok {
			return v, nil
		}
		c.builds.Add(1)
		v, err := build(buildCtx)
		if err != nil {
			return nil, err
		}
		c.entries.Add(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		v, _ := res.Val.(V) //nolint:errcheck // the flight only returns V
		return v, nil
	}
}

// Add stores v under key, replacing any resident value.
func (c *Cache[V]) Add(key string, v V) {
	c.entries.Add(key, v)
}

// Values returns the resident values, oldest first.
func (c *Cache[V]) Values() []V {
	return c.entries.Values()
}

// Remove drops key from the cache.
func (c *Cache[V]) Remove(key string) {
	c.entries.Remove(key)
}

// Len returns the number of resident values.
func (c *Cache[V]) Len() int {
	return c.entries.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Builds:    c.builds.Load(),
		Evictions: c.evictions.Load(),
	}
}
