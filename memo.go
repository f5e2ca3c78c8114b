package memo

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cache is an in-memory key/value store where every entry carries its own
// time-to-live. Expired entries are removed lazily, the first time Get or
// Has observes them.
type Cache[V any] struct {
	mu        sync.Mutex
	data      map[string]*entry[V]
	order     *keyOrder
	cfg       config[V]
	stats     counters
	totalSize int
}

// New creates a new Cache with the given options.
func New[V any](opts ...Option[V]) *Cache[V] {
	cfg := defaultConfig[V]()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Cache[V]{
		data:  make(map[string]*entry[V]),
		order: newKeyOrder(),
		cfg:   cfg,
	}
}

// Set adds or replaces a value using the cache's default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.cfg.ttl)
}

// SetWithTTL adds or replaces a value with a specific TTL. Replacing an
// entry resets its value, timestamp and TTL. A non-positive ttl stores an
// entry that every read treats as expired.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	size := c.cfg.sizer(value) + len(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.cfg.clock.Now()

	if ent, ok := c.data[key]; ok {
		c.totalSize += size - ent.size
		ent.value = value
		ent.storedAt = now
		ent.ttl = ttl
		ent.size = size
		return
	}

	c.data[key] = &entry[V]{
		value:    value,
		storedAt: now,
		ttl:      ttl,
		size:     size,
	}
	c.totalSize += size
	c.order.insert(key)
}

// Get returns the live value for key. It returns the zero value and false
// when the key is absent or expired; an expired entry is removed first.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	return ent.value, true
}

// Has reports whether a live entry exists for key, sweeping it if it has
// expired so that Has and a following Get agree.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.lookup(key)
	return ok
}

// lookup is the shared read path. Caller must hold c.mu.
func (c *Cache[V]) lookup(key string) (*entry[V], bool) {
	ent, ok := c.data[key]
	if !ok {
		c.recordMiss(key)
		return nil, false
	}

	if ent.isExpired(c.cfg.clock.Now()) {
		c.delete(key)
		c.stats.expire()
		c.cfg.logger.Debug("swept expired entry",
			zap.String("key", key),
			zap.Duration("ttl", ent.ttl),
		)
		if c.cfg.onExpire != nil {
			c.cfg.onExpire(key, ent.value)
		}
		c.recordMiss(key)
		return nil, false
	}

	c.stats.hit()
	if c.cfg.onHit != nil {
		c.cfg.onHit(key, ent.value)
	}
	return ent, true
}

func (c *Cache[V]) recordMiss(key string) {
	c.stats.miss()
	if c.cfg.onMiss != nil {
		c.cfg.onMiss(key)
	}
}

// Delete removes key from the cache. Deleting an absent key is a no-op.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.delete(key)
}

func (c *Cache[V]) delete(key string) bool {
	ent, ok := c.data[key]
	if !ok {
		return false
	}

	c.totalSize -= ent.size
	delete(c.data, key)
	c.order.remove(key)
	return true
}

// Clear removes all entries. Statistics counters are kept.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.data)
	c.data = make(map[string]*entry[V])
	c.order = newKeyOrder()
	c.totalSize = 0
	c.cfg.logger.Debug("cleared cache", zap.Int("count", n))
}

// Len returns the number of entries in the cache.
// May include expired entries that haven't been swept yet.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.data)
}

// Stats returns a snapshot of the cache contents and counters.
// It reports physical state and does not sweep expired entries.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Count:             len(c.data),
		ApproximateSizeKB: float64(c.totalSize) / 1024,
		Keys:              c.order.keys(),
		Hits:              c.stats.hits.Load(),
		Misses:            c.stats.misses.Load(),
		Expirations:       c.stats.expirations.Load(),
	}
}
