// Package cache is a short-lived read cache for public listings. Entries carry
// tags so writes can drop every entry that depends on a changed restaurant.
package cache

import (
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Tag helpers shared by readers and writers.
const TagRestaurants = "restaurants"

// RestaurantTag tags entries derived from one restaurant.
func RestaurantTag(id uint) string { return "restaurant:" + strconv.FormatUint(uint64(id), 10) }

type entry struct {
	value any
	tags  []string
}

type Cache struct {
	lru *expirable.LRU[string, entry]

	// gens counts invalidations per tag. Guarded by mu, which also orders
	// Invalidate against conditional sets.
	mu   sync.Mutex
	gens map[string]uint64
}

// New returns a cache holding at most size entries for ttl each.
func New(size int, ttl time.Duration) *Cache {
	return &Cache{
		lru:  expirable.NewLRU[string, entry](size, nil, ttl),
		gens: make(map[string]uint64),
	}
}

func (c *Cache) Get(key string) (any, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, value any, tags ...string) {
	c.lru.Add(key, entry{value: value, tags: tags})
}

// Invalidate removes every entry carrying any of tags. It is a no-op on a
// nil cache.
func (c *Cache) Invalidate(tags ...string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		c.gens[tag]++
	}
	for _, key := range c.lru.Keys() {
		e, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		for _, tag := range tags {
			if slices.Contains(e.tags, tag) {
				c.lru.Remove(key)
				break
			}
		}
	}
}

// generation sums the invalidation counts of tags. Callers hold mu.
func (c *Cache) generation(tags []string) uint64 {
	var g uint64
	for _, tag := range tags {
		g += c.gens[tag]
	}
	return g
}

func (c *Cache) snapshot(tags []string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation(tags)
}

// setIfCurrent stores value unless one of tags was invalidated since gen was
// taken.
func (c *Cache) setIfCurrent(key string, value any, tags []string, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation(tags) != gen {
		return false
	}
	c.lru.Add(key, entry{value: value, tags: tags})
	return true
}

// Len reports the number of live entries.
func (c *Cache) Len() int { return c.lru.Len() }

// Remember returns the cached value for key, or calls load and caches its
// result. Errors are not cached, and neither is a result whose tags were
// invalidated while load ran. A nil cache always loads.
func Remember[T any](c *Cache, key string, tags []string, load func() (T, error)) (T, error) {
	if c == nil {
		return load()
	}
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	gen := c.snapshot(tags)
	v, err := load()
	if err != nil {
		return v, err
	}
	c.setIfCurrent(key, v, tags, gen)
	return v, nil
}
