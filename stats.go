package memo

import "sync/atomic"

// counters holds access statistics using atomic counters for lock-free reads.
type counters struct {
	hits        atomic.Int64
	misses      atomic.Int64
	expirations atomic.Int64
}

func (s *counters) hit() {
	s.hits.Add(1)
}

func (s *counters) miss() {
	s.misses.Add(1)
}

func (s *counters) expire() {
	s.expirations.Add(1)
}

// Stats is a point-in-time view of a cache.
//
// Count and Keys describe the entries physically present, which may include
// expired entries no read has swept yet. Stats itself never sweeps.
type Stats struct {
	// Count is the number of entries physically present.
	Count int `json:"count"`
	// ApproximateSizeKB is a rough estimate of the stored data in KiB.
	ApproximateSizeKB float64 `json:"approximate_size_kb"`
	// Keys lists present keys in insertion order.
	Keys []string `json:"keys"`

	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Expirations int64 `json:"expirations"`
}

// HitRate returns the cache hit rate as a value between 0 and 1.
// Returns 0 if there have been no accesses.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
