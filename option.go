package memo

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// DefaultTTL is the time-to-live applied by Set.
const DefaultTTL = 5 * time.Minute

type config[V any] struct {
	ttl      time.Duration
	clock    Clock
	sizer    func(V) int
	logger   *zap.Logger
	onHit    func(string, V)
	onMiss   func(string)
	onExpire func(string, V)
}

func defaultConfig[V any]() config[V] {
	return config[V]{
		ttl:    DefaultTTL,
		clock:  defaultClock(),
		sizer:  jsonSize[V],
		logger: zap.NewNop(),
	}
}

// jsonSize estimates a value's footprint as its JSON-encoded length.
// Values that cannot be encoded count as zero.
func jsonSize[V any](v V) int {
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(b)
}

// Option configures a Cache.
type Option[V any] func(*config[V])

// WithTTL sets the time-to-live used by Set. Non-positive durations are
// ignored and DefaultTTL stays in effect.
func WithTTL[V any](d time.Duration) Option[V] {
	return func(c *config[V]) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithClock sets a custom clock for time operations.
// Useful for testing TTL behavior.
func WithClock[V any](clk Clock) Option[V] {
	return func(c *config[V]) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithSizer sets the function used to estimate a value's size in bytes
// for Stats. The estimate is diagnostic only and never drives eviction.
func WithSizer[V any](fn func(V) int) Option[V] {
	return func(c *config[V]) {
		if fn != nil {
			c.sizer = fn
		}
	}
}

// WithLogger sets the logger used for debug output about sweeps and clears.
func WithLogger[V any](l *zap.Logger) Option[V] {
	return func(c *config[V]) {
		if l != nil {
			c.logger = l
		}
	}
}

// OnHit sets a callback invoked when Get or Has finds a live entry.
// Hooks run while the cache lock is held and must not call back into
// the cache.
func OnHit[V any](fn func(key string, value V)) Option[V] {
	return func(c *config[V]) {
		c.onHit = fn
	}
}

// OnMiss sets a callback invoked when Get or Has finds no live entry.
func OnMiss[V any](fn func(key string)) Option[V] {
	return func(c *config[V]) {
		c.onMiss = fn
	}
}

// OnExpire sets a callback invoked when an expired entry is swept.
func OnExpire[V any](fn func(key string, value V)) Option[V] {
	return func(c *config[V]) {
		c.onExpire = fn
	}
}
