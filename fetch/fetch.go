// Package fetch wraps expensive loads, typically network requests, behind
// a memo.Cache.
//
// A Fetcher answers from the cache when it can, then from an optional shared
// Store, and only then runs the load. Concurrent fetches of the same key
// share a single load, and failed loads are retried with exponential
// backoff before the error is surfaced.
package fetch

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bjaus/memo"
)

// LoadFunc produces the value for a cache miss.
type LoadFunc[V any] func(ctx context.Context) (V, error)

type config[V any] struct {
	store           Store[V]
	storeErrHandler func(error) error
	retry           Retry
	logger          *zap.Logger
	onRetry         func(key string, attempt int, err error)
}

// Option configures a Fetcher.
type Option[V any] func(*config[V])

// WithStore sets a shared store consulted after the cache misses and
// written after every successful load.
func WithStore[V any](s Store[V]) Option[V] {
	return func(c *config[V]) {
		c.store = s
	}
}

// WithStoreErrorHandler sets a function to handle store errors.
// The handler receives the error and returns the error to propagate (or nil to swallow).
// Default behavior propagates all errors.
func WithStoreErrorHandler[V any](fn func(error) error) Option[V] {
	return func(c *config[V]) {
		c.storeErrHandler = fn
	}
}

// WithRetry sets the retry policy for loads.
func WithRetry[V any](r Retry) Option[V] {
	return func(c *config[V]) {
		c.retry = r
	}
}

// WithLogger sets the logger for retries and store failures.
func WithLogger[V any](l *zap.Logger) Option[V] {
	return func(c *config[V]) {
		if l != nil {
			c.logger = l
		}
	}
}

// OnRetry sets a callback invoked after a failed attempt that will be retried.
func OnRetry[V any](fn func(key string, attempt int, err error)) Option[V] {
	return func(c *config[V]) {
		c.onRetry = fn
	}
}

// Fetcher provides cache-first loading on top of a memo.Cache.
type Fetcher[V any] struct {
	cache *memo.Cache[V]
	cfg   config[V]
	group singleflight.Group
}

// New creates a Fetcher that memoizes into cache.
func New[V any](cache *memo.Cache[V], opts ...Option[V]) *Fetcher[V] {
	cfg := config[V]{
		retry:  DefaultRetry,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Fetcher[V]{cache: cache, cfg: cfg}
}

// Cache returns the underlying cache.
func (f *Fetcher[V]) Cache() *memo.Cache[V] {
	return f.cache
}

// Get returns the value for key, loading and caching it for ttl on a miss.
//
// The load runs detached from ctx so that one caller giving up does not
// fail the others waiting on the same key; ctx still bounds how long this
// caller waits.
func (f *Fetcher[V]) Get(ctx context.Context, key string, ttl time.Duration, load LoadFunc[V]) (V, error) {
	var zero V

	if v, ok := f.cache.Get(key); ok {
		return v, nil
	}

	v, ok, err := f.fromStore(ctx, key, ttl)
	if err != nil {
		return zero, err
	}
	if ok {
		return v, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(key, func() (any, error) {
		return f.load(flightCtx, key, ttl, load)
	})

	select {
	case res := <-ch:
		v, _ := res.Val.(V)
		return v, res.Err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (f *Fetcher[V]) fromStore(ctx context.Context, key string, ttl time.Duration) (V, bool, error) {
	var zero V
	if f.cfg.store == nil {
		return zero, false, nil
	}

	v, ok, err := f.cfg.store.Get(ctx, key)
	if err != nil {
		f.cfg.logger.Warn("store get failed", zap.String("key", key), zap.Error(err))
		return zero, false, f.storeErr(errors.Wrap(err, "fetch: store get"))
	}
	if ok {
		f.cache.SetWithTTL(key, v, ttl)
	}
	return v, ok, nil
}

func (f *Fetcher[V]) load(ctx context.Context, key string, ttl time.Duration, load LoadFunc[V]) (any, error) {
	// a flight that finished just before this one started may have filled the cache
	if v, ok := f.cache.Get(key); ok {
		return v, nil
	}

	var v V
	err := f.cfg.retry.do(ctx, key, func() error {
		var err error
		v, err = load(ctx)
		return err
	}, func(attempt int, err error, wait time.Duration) {
		f.cfg.logger.Debug("load failed, retrying",
			zap.String("key", key),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if f.cfg.onRetry != nil {
			f.cfg.onRetry(key, attempt, err)
		}
	})
	if err != nil {
		f.cfg.logger.Warn("load failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	f.cache.SetWithTTL(key, v, ttl)

	if f.cfg.store != nil {
		if err := f.cfg.store.Set(ctx, key, v, ttl); err != nil {
			f.cfg.logger.Warn("store set failed", zap.String("key", key), zap.Error(err))
			if err := f.storeErr(errors.Wrap(err, "fetch: store set")); err != nil {
				return v, err
			}
		}
	}
	return v, nil
}

// Invalidate removes key from the cache and the store.
func (f *Fetcher[V]) Invalidate(ctx context.Context, key string) error {
	f.cache.Delete(key)

	if f.cfg.store == nil {
		return nil
	}
	if err := f.cfg.store.Delete(ctx, key); err != nil {
		return f.storeErr(errors.Wrap(err, "fetch: store delete"))
	}
	return nil
}

func (f *Fetcher[V]) storeErr(err error) error {
	if f.cfg.storeErrHandler != nil {
		return f.cfg.storeErrHandler(err)
	}
	return err
}
