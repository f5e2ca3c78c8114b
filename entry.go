package memo

import "time"

type entry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
	size     int
}

// isExpired reports whether more than ttl has elapsed since storedAt.
// An entry is still live at exactly its deadline. A non-positive ttl
// is expired from the moment it is stored.
func (e *entry[V]) isExpired(now time.Time) bool {
	return e.ttl <= 0 || now.Sub(e.storedAt) > e.ttl
}
