package memo

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Clock provides the time source used to stamp and expire entries.
// Both clock.Clock and *clock.Mock from github.com/benbjohnson/clock
// satisfy it.
type Clock interface {
	Now() time.Time
}

func defaultClock() Clock {
	return clock.New()
}
