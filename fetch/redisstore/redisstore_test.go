package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type product struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// unreachable returns a client pointed at a closed port with retries off.
func unreachable() *rdb.Client {
	return rdb.NewClient(&rdb.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	c := unreachable()
	defer c.Close()

	s := New[product](c)

	_, ok, err := s.Get(ctx, "p:1")
	require.False(t, ok)
	require.ErrorContains(t, err, "redisstore: get p:1")

	err = s.Set(ctx, "p:1", product{ID: 1}, time.Minute)
	require.ErrorContains(t, err, "redisstore: set p:1")

	// non-positive ttl deletes instead of writing
	err = s.Set(ctx, "p:1", product{ID: 1}, 0)
	require.ErrorContains(t, err, "redisstore: delete p:1")
}

func TestEncodeError(t *testing.T) {
	c := unreachable()
	defer c.Close()

	s := New[chan int](c)
	err := s.Set(context.Background(), "ch", make(chan int), time.Minute)
	require.ErrorContains(t, err, "redisstore: encode ch")
}

func TestDialUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Dial(ctx, "127.0.0.1:1", "", 0)
	require.ErrorContains(t, err, "redisstore: ping 127.0.0.1:1")
}

// TestRoundTrip needs a live server: MEMO_TEST_REDIS_ADDR=localhost:6379.
func TestRoundTrip(t *testing.T) {
	addr := os.Getenv("MEMO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MEMO_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	c, err := Dial(ctx, addr, "", 0)
	require.NoError(t, err)
	defer c.Close()

	s := New[product](c, WithPrefix("memo-test:"))
	defer s.Delete(ctx, "p:42")

	_, ok, err := s.Get(ctx, "p:42")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "p:42", product{ID: 42, Name: "Widget"}, time.Minute))

	v, ok, err := s.Get(ctx, "p:42")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, product{ID: 42, Name: "Widget"}, v)

	ttl, err := c.TTL(ctx, "memo-test:p:42").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	require.NoError(t, s.Delete(ctx, "p:42"))
	_, ok, err = s.Get(ctx, "p:42")
	require.NoError(t, err)
	require.False(t, ok)
}
