// Package cache provides a bounded get-or-compute cache for expensive
// repeated parses (user agents, URI structures).
package cache

// Adaptive is a capacity-bound map with insertion-order eviction. On
// reaching capacity it drops the oldest-inserted half. Not safe for
// concurrent use; each worker owns its own instances.
type Adaptive[V any] struct {
	capacity int
	entries  map[string]V
	order    []string
	hits     int64
	misses   int64
}

// New creates a cache with the given capacity. Capacities below 2 are
// raised to 2 so eviction always leaves room.
func New[V any](capacity int) *Adaptive[V] {
	if capacity < 2 {
		capacity = 2
	}
	return &Adaptive[V]{
		capacity: capacity,
		entries:  make(map[string]V, capacity),
		order:    make([]string, 0, capacity),
	}
}

// GetOrCompute returns the cached value for key, computing and inserting it
// on a miss. Eviction fires before insert when the cache is full.
func (c *Adaptive[V]) GetOrCompute(key string, compute func() V) V {
	if v, ok := c.entries[key]; ok {
		c.hits++
		return v
	}
	c.misses++

	if len(c.entries) >= c.capacity {
		c.evict()
	}

	v := compute()
	c.entries[key] = v
	c.order = append(c.order, key)
	return v
}

// evict drops the oldest-inserted half of the entries.
func (c *Adaptive[V]) evict() {
	keep := c.capacity / 2
	drop := len(c.order) - keep
	if drop <= 0 {
		return
	}
	for _, key := range c.order[:drop] {
		delete(c.entries, key)
	}
	c.order = append(c.order[:0], c.order[drop:]...)
}

// Len returns the number of cached entries.
func (c *Adaptive[V]) Len() int {
	return len(c.entries)
}

// Stats returns the hit and miss counters.
func (c *Adaptive[V]) Stats() (hits, misses int64) {
	return c.hits, c.misses
}

// Prune clears everything beyond half capacity. Called from the workers'
// periodic maintenance hook to cap memory between files.
func (c *Adaptive[V]) Prune() {
	if len(c.entries) > c.capacity/2 {
		c.evict()
	}
}
