package memo

import (
	"strconv"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

func BenchmarkCache_Get(b *testing.B) {
	cache := New[int]()

	keys := make([]string, 100)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
		cache.Set(keys[i], i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(keys[i%100])
	}
}

func BenchmarkCache_Set(b *testing.B) {
	cache := New[int]()

	keys := make([]string, b.N)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Set(keys[i], i)
	}
}

func BenchmarkCache_SetFixedSizer(b *testing.B) {
	cache := New[int](WithSizer(func(int) int { return 8 }))

	keys := make([]string, b.N)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Set(keys[i], i)
	}
}

func BenchmarkCache_GetExpired(b *testing.B) {
	cache := New[int]()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.SetWithTTL("k", i, 0)
		cache.Get("k")
	}
}

func BenchmarkCache_Stats(b *testing.B) {
	cache := New[int]()
	for i := 0; i < 1000; i++ {
		cache.Set(strconv.Itoa(i), i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Stats()
	}
}

func BenchmarkCache_Parallel(b *testing.B) {
	cache := New[int]()

	keys := make([]string, 100)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
		cache.Set(keys[i], i)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%10 == 0 {
				cache.Set(keys[i%100], i)
			} else {
				cache.Get(keys[i%100])
			}
			i++
		}
	})
}

// BenchmarkGoCache_Get is a baseline against patrickmn/go-cache, which
// sweeps with a janitor goroutine instead of on access.
func BenchmarkGoCache_Get(b *testing.B) {
	cache := gocache.New(DefaultTTL, time.Minute)

	keys := make([]string, 100)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
		cache.SetDefault(keys[i], i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(keys[i%100])
	}
}
