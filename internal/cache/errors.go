package cache

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitExceeded is returned when a rate-limit key has used its quota for
// the current window. RetryAfter is the time left until the window resets.
type RateLimitExceeded struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitExceeded) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %.1f seconds", e.Key, e.RetryAfter.Seconds())
}

// CachedError is a failure replayed from the cache. Kind names the original
// error type and Message is its text; Error() returns Message unchanged and
// Unwrap exposes the original, so errors.Is and errors.As see the same chain
// on a cache hit as on the call that produced it.
type CachedError struct {
	Kind    string
	Message string
	Err     error
}

func (e *CachedError) Error() string {
	return e.Message
}

func (e *CachedError) Unwrap() error {
	return e.Err
}

func newCachedError(err error) *CachedError {
	return &CachedError{
		Kind:    fmt.Sprintf("%T", err),
		Message: err.Error(),
		Err:     err,
	}
}

// IsCached reports whether err was replayed from the cache rather than
// produced by a fresh call.
func IsCached(err error) bool {
	var ce *CachedError
	return errors.As(err, &ce)
}

// IsRateLimited reports whether err is, or wraps, a RateLimitExceeded.
func IsRateLimited(err error) bool {
	var rl *RateLimitExceeded
	return errors.As(err, &rl)
}
