package cache

import (
	"context"
	"errors"
	"time"
)

// rateWindow is the fixed quota window length.
const rateWindow = 60 * time.Second

// RateLimitOptions configures the quota and backoff of one rate-limited operation.
type RateLimitOptions struct {
	CallsPerMinute int           // zero or negative disables the quota
	RetryAfter     time.Duration // base backoff, doubled per attempt
	MaxRetries     int           // retries after the first attempt
}

// DefaultRateLimitOptions returns 5 calls per minute, 60s base backoff and 3 retries.
func DefaultRateLimitOptions() RateLimitOptions {
	return RateLimitOptions{
		CallsPerMinute: 5,
		RetryAfter:     60 * time.Second,
		MaxRetries:     3,
	}
}

// acquire counts one call against key, or returns *RateLimitExceeded without
// counting it when the current window is full.
func (s *Store) acquire(key string, limit int) error {
	if limit <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= rateWindow {
		w = &window{start: now}
		s.windows[key] = w
	}

	if w.calls >= limit {
		return &RateLimitExceeded{
			Key:        key,
			RetryAfter: rateWindow - now.Sub(w.start),
		}
	}

	w.calls++
	return nil
}

// backoff returns the wait before retry number attempt (zero-based).
func (s *Store) backoff(base time.Duration, attempt int) time.Duration {
	return base<<attempt + s.jitter()
}

// RateLimited bounds calls of fn to opts.CallsPerMinute per key in a fixed
// 60-second window. The key is name plus the argument when it is a string, or
// its LimitKey() when it implements LimitKeyer.
//
// A rejected call and any error from fn are retried after
// RetryAfter*2^attempt plus up to 3s of jitter, at most MaxRetries times.
// The last error is returned once retries run out. Cancelling ctx stops the
// backoff and returns the last error joined with ctx.Err().
func RateLimited[A, R any](s *Store, name string, opts RateLimitOptions, fn Func[A, R]) Func[A, R] {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	return func(ctx context.Context, args A) (R, error) {
		var zero R
		key := limitKey(name, args)

		var lastErr error
		for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
			if attempt > 0 {
				wait := s.backoff(opts.RetryAfter, attempt-1)
				rateLimitRetries.WithLabelValues(name).Inc()
				s.logger.Warn().
					Str("key", key).
					Int("attempt", attempt).
					Dur("wait", wait).
					Err(lastErr).
					Msg("Retrying rate-limited call")

				if err := s.sleep(ctx, wait); err != nil {
					return zero, errors.Join(lastErr, err)
				}
			}

			if err := s.acquire(key, opts.CallsPerMinute); err != nil {
				rateLimitRejections.WithLabelValues(name).Inc()
				lastErr = err
				continue
			}

			result, err := fn(ctx, args)
			if err == nil {
				return result, nil
			}
			lastErr = err
		}

		s.logger.Error().
			Str("key", key).
			Int("max_retries", opts.MaxRetries).
			Err(lastErr).
			Msg("Rate-limited call failed after retries")
		return zero, lastErr
	}
}
