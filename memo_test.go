package memo

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type MemoSuite struct {
	suite.Suite
	clk *clock.Mock
}

func (s *MemoSuite) SetupTest() {
	s.clk = clock.NewMock()
	s.clk.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestMemoSuite(t *testing.T) {
	suite.Run(t, new(MemoSuite))
}

func (s *MemoSuite) newCache(opts ...Option[string]) *Cache[string] {
	return New(append([]Option[string]{WithClock[string](s.clk)}, opts...)...)
}

func (s *MemoSuite) TestGetSet() {
	c := s.newCache()

	c.Set("a", "1")
	c.Set("b", "2")

	v, ok := c.Get("a")
	s.True(ok)
	s.Equal("1", v)

	v, ok = c.Get("b")
	s.True(ok)
	s.Equal("2", v)

	v, ok = c.Get("c")
	s.False(ok)
	s.Empty(v)
}

func (s *MemoSuite) TestDefaultTTL() {
	c := s.newCache()

	c.Set("a", "1")

	s.clk.Add(DefaultTTL)
	s.True(c.Has("a"))

	s.clk.Add(time.Millisecond)
	s.False(c.Has("a"))
}

func (s *MemoSuite) TestWithTTL() {
	c := s.newCache(WithTTL[string](time.Second))

	c.Set("a", "1")
	s.clk.Add(2 * time.Second)

	_, ok := c.Get("a")
	s.False(ok)
}

func (s *MemoSuite) TestWithTTLIgnoresNonPositive() {
	c := s.newCache(WithTTL[string](0))

	c.Set("a", "1")
	s.clk.Add(time.Minute)

	s.True(c.Has("a"))
}

func (s *MemoSuite) TestRoundTrip() {
	c := s.newCache()

	for _, ttl := range []time.Duration{time.Millisecond, time.Second, time.Hour} {
		c.SetWithTTL("k", ttl.String(), ttl)
		v, ok := c.Get("k")
		s.True(ok)
		s.Equal(ttl.String(), v)
	}
}

func (s *MemoSuite) TestExpiry() {
	c := s.newCache()

	c.SetWithTTL("a", "1", time.Second)
	s.clk.Add(time.Second + time.Nanosecond)

	_, ok := c.Get("a")
	s.False(ok)
	s.False(c.Has("a"))
}

func (s *MemoSuite) TestBoundary() {
	c := s.newCache()

	c.SetWithTTL("a", "1", time.Second)

	s.clk.Add(time.Second)
	s.True(c.Has("a"), "live at exactly ttl")

	s.clk.Add(time.Millisecond)
	s.False(c.Has("a"), "expired past ttl")
}

func (s *MemoSuite) TestNonPositiveTTL() {
	c := s.newCache()

	c.SetWithTTL("zero", "1", 0)
	c.SetWithTTL("negative", "2", -time.Second)
	s.Equal(2, c.Len())

	_, ok := c.Get("zero")
	s.False(ok)
	s.False(c.Has("negative"))
	s.Equal(0, c.Len())
}

func (s *MemoSuite) TestReplace() {
	c := s.newCache()

	c.SetWithTTL("a", "1", time.Second)
	s.clk.Add(900 * time.Millisecond)
	c.SetWithTTL("a", "2", 500*time.Millisecond)

	v, ok := c.Get("a")
	s.True(ok)
	s.Equal("2", v)
	s.Equal(1, c.Len())

	// the first entry's deadline has passed, the replacement's has not
	s.clk.Add(400 * time.Millisecond)
	s.True(c.Has("a"))

	s.clk.Add(101 * time.Millisecond)
	s.False(c.Has("a"))
}

func (s *MemoSuite) TestReplaceExtendsShortTTL() {
	c := s.newCache()

	c.SetWithTTL("a", "1", 100*time.Millisecond)
	c.SetWithTTL("a", "2", time.Hour)
	s.clk.Add(time.Minute)

	v, ok := c.Get("a")
	s.True(ok)
	s.Equal("2", v)
}

func (s *MemoSuite) TestLazySweep() {
	c := s.newCache()

	c.SetWithTTL("a", "1", time.Second)
	c.SetWithTTL("b", "2", time.Hour)
	s.clk.Add(2 * time.Second)

	// stats reports physical state until a read touches the entry
	st := c.Stats()
	s.Equal(2, st.Count)
	s.Equal([]string{"a", "b"}, st.Keys)

	_, ok := c.Get("a")
	s.False(ok)

	st = c.Stats()
	s.Equal(1, st.Count)
	s.Equal([]string{"b"}, st.Keys)
	s.Equal(int64(1), st.Expirations)
}

func (s *MemoSuite) TestHasSweeps() {
	c := s.newCache()

	c.SetWithTTL("a", "1", time.Second)
	s.clk.Add(2 * time.Second)

	s.False(c.Has("a"))
	s.Equal(0, c.Len())

	_, ok := c.Get("a")
	s.False(ok)
}

func (s *MemoSuite) TestIsolation() {
	c := s.newCache()

	c.SetWithTTL("a", "1", time.Second)
	c.SetWithTTL("b", "2", time.Minute)

	c.SetWithTTL("a", "3", time.Hour)
	c.Delete("a")
	s.clk.Add(30 * time.Second)

	v, ok := c.Get("b")
	s.True(ok)
	s.Equal("2", v)

	s.clk.Add(30*time.Second + time.Nanosecond)
	s.False(c.Has("b"))
}

func (s *MemoSuite) TestDelete() {
	c := s.newCache()

	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	c.Delete("missing")

	s.False(c.Has("a"))
	s.True(c.Has("b"))

	st := c.Stats()
	s.Equal(1, st.Count)
	s.Equal([]string{"b"}, st.Keys)
}

func (s *MemoSuite) TestClear() {
	c := s.newCache()

	c.Set("a", "1")
	c.Set("b", "2")
	c.Clear()

	st := c.Stats()
	s.Equal(0, st.Count)
	s.Empty(st.Keys)
	s.Zero(st.ApproximateSizeKB)
	s.False(c.Has("a"))

	c.Set("a", "1")
	s.True(c.Has("a"))
}

func (s *MemoSuite) TestKeysInsertionOrder() {
	c := s.newCache()

	c.Set("c", "1")
	c.Set("a", "2")
	c.Set("b", "3")
	c.Set("c", "4") // replacing keeps position

	s.Equal([]string{"c", "a", "b"}, c.Stats().Keys)

	c.Delete("c")
	c.Set("c", "5")
	s.Equal([]string{"a", "b", "c"}, c.Stats().Keys)
}

func (s *MemoSuite) TestApproximateSize() {
	c := s.newCache(WithSizer(func(v string) int { return 1023 }))

	c.Set("a", "x")
	s.InDelta(1.0, c.Stats().ApproximateSizeKB, 1e-9)

	c.Set("b", "y")
	s.InDelta(2.0, c.Stats().ApproximateSizeKB, 1e-9)

	c.Set("a", "z") // replacing does not double count
	s.InDelta(2.0, c.Stats().ApproximateSizeKB, 1e-9)

	c.Delete("a")
	s.InDelta(1.0, c.Stats().ApproximateSizeKB, 1e-9)
}

func (s *MemoSuite) TestDefaultSizerUsesJSON() {
	c := New[map[string]string](WithClock[map[string]string](s.clk))

	// {"name":"Widget"} is 17 bytes, plus the 10 byte key
	c.Set("product:42", map[string]string{"name": "Widget"})
	s.InDelta(27.0/1024, c.Stats().ApproximateSizeKB, 1e-9)
}

func (s *MemoSuite) TestDefaultSizerUnencodable() {
	c := New[chan int](WithClock[chan int](s.clk))

	c.Set("ch", make(chan int))
	s.InDelta(2.0/1024, c.Stats().ApproximateSizeKB, 1e-9)
}

func (s *MemoSuite) TestStatsCounters() {
	c := s.newCache()

	c.SetWithTTL("a", "1", time.Second)
	c.Get("a")
	c.Get("b")
	c.Has("a")
	s.clk.Add(2 * time.Second)
	c.Get("a")

	st := c.Stats()
	s.Equal(int64(2), st.Hits)
	s.Equal(int64(2), st.Misses)
	s.Equal(int64(1), st.Expirations)
	s.InDelta(0.5, st.HitRate(), 1e-9)
}

func (s *MemoSuite) TestHitRateNoAccess() {
	c := s.newCache()
	s.Zero(c.Stats().HitRate())
}

func (s *MemoSuite) TestCallbacks() {
	var hits, misses []string
	var expired []string

	c := s.newCache(
		OnHit(func(key string, _ string) { hits = append(hits, key) }),
		OnMiss[string](func(key string) { misses = append(misses, key) }),
		OnExpire(func(key string, value string) { expired = append(expired, key+"="+value) }),
	)

	c.SetWithTTL("a", "1", time.Second)
	c.Get("a")
	c.Get("b")
	s.clk.Add(2 * time.Second)
	c.Has("a")

	s.Equal([]string{"a"}, hits)
	s.Equal([]string{"b", "a"}, misses)
	s.Equal([]string{"a=1"}, expired)
}

func (s *MemoSuite) TestLoggerOnSweep() {
	core, logs := observer.New(zap.DebugLevel)
	c := s.newCache(WithLogger[string](zap.New(core)))

	c.SetWithTTL("a", "1", time.Second)
	s.clk.Add(2 * time.Second)
	c.Get("a")
	c.Clear()

	s.Equal(1, logs.FilterMessage("swept expired entry").Len())
	s.Equal(1, logs.FilterMessage("cleared cache").Len())
}

func (s *MemoSuite) TestExampleScenario() {
	c := New[map[string]string](WithClock[map[string]string](s.clk))

	c.SetWithTTL("product:42", map[string]string{"name": "Widget"}, 1000*time.Millisecond)

	s.clk.Add(500 * time.Millisecond)
	v, ok := c.Get("product:42")
	s.True(ok)
	s.Equal("Widget", v["name"])
	s.Equal(1, c.Stats().Count)

	s.clk.Add(501 * time.Millisecond)
	_, ok = c.Get("product:42")
	s.False(ok)
	s.Equal(0, c.Stats().Count)
}

func (s *MemoSuite) TestConcurrentAccess() {
	c := New[int]()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%26))
			c.SetWithTTL(key, n, time.Duration(n%3)*time.Millisecond)
			c.Get(key)
			c.Has(key)
			c.Stats()
			c.Delete(key)
		}(i)
	}
	wg.Wait()
}
