// Package redisstore implements fetch.Store on top of Redis so that several
// processes can share loaded values.
package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	rdb "github.com/redis/go-redis/v9"

	"github.com/bjaus/memo/fetch"
)

// DefaultPrefix is prepended to every key unless WithPrefix overrides it.
const DefaultPrefix = "memo:"

var _ fetch.Store[string] = (*Store[string])(nil)

type options struct {
	prefix string
}

// Store keeps JSON-encoded values in Redis.
type Store[V any] struct {
	client rdb.UniversalClient
	prefix string
}

// Option configures a Store.
type Option func(*options)

// WithPrefix sets the key prefix.
func WithPrefix(p string) Option {
	return func(o *options) {
		o.prefix = p
	}
}

// New wraps client as a fetch.Store.
func New[V any](client rdb.UniversalClient, opts ...Option) *Store[V] {
	o := options{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[V]{client: client, prefix: o.prefix}
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int) (*rdb.Client, error) {
	c := rdb.NewClient(&rdb.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, errors.Wrapf(err, "redisstore: ping %s", addr)
	}
	return c, nil
}

func (s *Store[V]) key(k string) string {
	return s.prefix + k
}

// Get retrieves and decodes the value for key. A missing key is a miss,
// not an error.
func (s *Store[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, rdb.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, errors.Wrapf(err, "redisstore: get %s", key)
	}

	var v V
	if err := json.Unmarshal(b, &v); err != nil {
		return zero, false, errors.Wrapf(err, "redisstore: decode %s", key)
	}
	return v, true, nil
}

// Set encodes value and stores it for ttl. A non-positive ttl deletes the
// key instead, since such an entry would already be expired.
func (s *Store[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Delete(ctx, key)
	}

	b, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "redisstore: encode %s", key)
	}
	if err := s.client.Set(ctx, s.key(key), b, ttl).Err(); err != nil {
		return errors.Wrapf(err, "redisstore: set %s", key)
	}
	return nil
}

// Delete removes key.
func (s *Store[V]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return errors.Wrapf(err, "redisstore: delete %s", key)
	}
	return nil
}
