package fetch

import (
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// ErrRetriesExhausted matches every *RetryError.
var ErrRetriesExhausted = errors.New("fetch: retries exhausted")

// RetryError is returned when a load failed on every allowed attempt.
type RetryError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("fetch %q: giving up after %d attempts: %v", e.Key, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// Is reports whether target is ErrRetriesExhausted.
func (e *RetryError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// Permanent marks err as not worth retrying. A load returning a permanent
// error fails immediately with the underlying error.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *backoff.PermanentError
	return errors.As(err, &p)
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}
