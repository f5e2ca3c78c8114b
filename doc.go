// Package memo provides a generic in-memory memoization cache where every
// entry carries its own time-to-live.
//
// # Overview
//
// A Cache maps string keys to values of any type. Each Set stamps the entry
// with the current time and a TTL; once more than the TTL has elapsed the
// entry behaves as absent. There is no capacity limit and no background
// sweeper: expired entries are removed the first time Get or Has sees them.
//
// # Basic Usage
//
//	cache := memo.New[*Product]()
//
//	// Set with the default TTL (5 minutes)
//	cache.Set("product:42", p)
//
//	// Set with an explicit TTL
//	cache.SetWithTTL("search:shoes", results, 30*time.Second)
//
//	if p, ok := cache.Get("product:42"); ok {
//		render(p)
//	}
//
//	cache.Delete("product:42")
//	cache.Clear()
//
// # Expiry
//
// An entry stored at t with TTL d is live while now-t <= d and expired once
// now-t > d. A TTL of zero or less yields an entry that is already expired
// on its next read; Set never rejects a TTL.
//
// # Statistics
//
// Stats reports the number of physically present entries, their keys in
// insertion order, an approximate size and hit/miss/expiration counters.
// Stats does not sweep, so Count can include expired entries that no read
// has touched yet:
//
//	s := cache.Stats()
//	fmt.Println(s.Count, s.ApproximateSizeKB, s.Keys, s.HitRate())
//
// # Lifecycle Hooks
//
//	cache := memo.New[int](
//		memo.OnHit(func(key string, value int) {
//			metrics.Increment("cache.hit")
//		}),
//		memo.OnExpire(func(key string, value int) {
//			logger.Debug("expired", "key", key)
//		}),
//	)
//
// The metrics subpackage wires these hooks to Prometheus counters.
//
// # Testing
//
// Inject a mock clock to control time in tests:
//
//	mock := clock.NewMock() // github.com/benbjohnson/clock
//	cache := memo.New[int](memo.WithClock[int](mock))
//
//	cache.SetWithTTL("key", 42, time.Minute)
//	mock.Add(2 * time.Minute)
//	_, ok := cache.Get("key") // ok == false
//
// # Thread Safety
//
// All Cache methods are safe for concurrent use. A single sync.Mutex guards
// the entries, so the read-then-sweep in Get and Has is atomic with respect
// to concurrent Set and Delete calls.
package memo
