package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// HTTP
// =================================================================================

// RequestID is the field for the request ID.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method is the field for the HTTP method.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path is the field for the request path.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status is the field for the response status code.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Bytes is the field for the response size.
func Bytes(v int) zap.Field {
	return zap.Int("bytes", v)
}

// DurationMs is the field for a duration in milliseconds.
func DurationMs(v int64) zap.Field {
	return zap.Int64("duration_ms", v)
}

// =================================================================================
// CACHE
// =================================================================================

// Key is the field for a cache key.
func Key(v string) zap.Field {
	return zap.String("key", v)
}

// TTL is the field for an entry's time-to-live.
func TTL(v time.Duration) zap.Field {
	return zap.Duration("ttl", v)
}

// Count is the field for a number of entries.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// =================================================================================
// SYSTEM
// =================================================================================

// Err is the field for an error.
func Err(err error) zap.Field {
	return zap.Error(err)
}
