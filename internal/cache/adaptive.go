package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"golang.org/x/sync/singleflight"
)

// Func is the shape of every wrapped operation: one argument value (use a
// struct for several) and a result or an error.
type Func[A, R any] func(ctx context.Context, args A) (R, error)

// Lener is implemented by collection-like results. Len() == 0 marks an empty result.
type Lener interface {
	Len() int
}

// ErrorReporter is implemented by results that can carry an error payload
// instead of failing, such as a fallback result with no data.
type ErrorReporter interface {
	ErrorMessage() string
}

// Options configures the adaptive TTL policy of one cached operation.
type Options struct {
	BaseTTL  time.Duration // results of unknown quality; empty results get half
	MaxTTL   time.Duration // non-empty results
	ErrorTTL time.Duration // failures and error payloads
}

// DefaultOptions returns 1h base, 24h max and 5m error TTLs.
func DefaultOptions() Options {
	return Options{
		BaseTTL:  time.Hour,
		MaxTTL:   24 * time.Hour,
		ErrorTTL: 5 * time.Minute,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BaseTTL <= 0 {
		o.BaseTTL = d.BaseTTL
	}
	if o.MaxTTL <= 0 {
		o.MaxTTL = d.MaxTTL
	}
	if o.ErrorTTL <= 0 {
		o.ErrorTTL = d.ErrorTTL
	}
	return o
}

// TTLFor returns the TTL a successful result is cached for:
//   - error payload with no data: ErrorTTL
//   - nil, zero or zero-length: BaseTTL / 2
//   - non-empty collection: MaxTTL
//   - anything else: BaseTTL
func (o Options) TTLFor(result any) time.Duration {
	n, sized := resultLen(result)

	if r, ok := result.(ErrorReporter); ok && r.ErrorMessage() != "" && (!sized || n == 0) {
		return o.ErrorTTL
	}

	switch {
	case sized && n == 0:
		return o.BaseTTL / 2
	case sized:
		return o.MaxTTL
	case isZero(result):
		return o.BaseTTL / 2
	default:
		return o.BaseTTL
	}
}

// resultLen reports the element count of collection-like results. Strings
// are scalars here: "" is zero, anything else gets BaseTTL.
func resultLen(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	if l, ok := v.(Lener); ok {
		return l.Len(), true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return 0, false
		}
		if l, ok := rv.Elem().Interface().(Lener); ok {
			return l.Len(), true
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}

// estimateSize approximates the memory held by a cached value.
func estimateSize(v any) int {
	if b, err := json.Marshal(v); err == nil {
		return len(b)
	}
	return len(fmt.Sprintf("%v", v))
}

// Cached memoises fn per (name, args). A hit inside the TTL returns the stored
// value without calling fn; a stored failure is returned again as a
// *CachedError carrying the same message and wrapping the same error. The TTL
// of each entry is chosen by opts.TTLFor, or opts.ErrorTTL for failures.
//
// Concurrent misses on one key share a single call to fn. The shared call
// runs detached from any one caller's cancellation; each caller stops
// waiting when its own ctx is done. Context errors are never stored.
func Cached[A, R any](s *Store, name string, opts Options, fn Func[A, R]) Func[A, R] {
	opts = opts.withDefaults()

	return func(ctx context.Context, args A) (R, error) {
		var zero R

		key, err := cacheKey(name, args)
		if err != nil {
			return zero, err
		}

		if r, err, ok := replay[R](s, key); ok {
			if err != nil {
				cacheRequests.WithLabelValues(name, "error_hit").Inc()
			} else {
				cacheRequests.WithLabelValues(name, "hit").Inc()
			}
			return r, err
		}
		cacheRequests.WithLabelValues(name, "miss").Inc()

		if err := ctx.Err(); err != nil {
			return zero, err
		}

		flightCtx := context.WithoutCancel(ctx)
		ch := s.flight.DoChan(key, func() (any, error) {
			// A flight that finished just before this one may have stored the key
			if r, err, ok := replay[R](s, key); ok {
				return r, err
			}

			result, err := fn(flightCtx, args)
			if err != nil {
				if isContextErr(err) {
					return nil, err
				}
				s.put(key, &entry{err: newCachedError(err), ttl: opts.ErrorTTL, size: len(err.Error())})
				s.logger.Debug().
					Str("operation", name).
					Dur("ttl", opts.ErrorTTL).
					Err(err).
					Msg("Cached failure")
				return nil, err
			}

			ttl := opts.TTLFor(result)
			s.put(key, &entry{value: result, ttl: ttl, size: estimateSize(result)})
			s.logger.Debug().
				Str("operation", name).
				Dur("ttl", ttl).
				Msg("Cached result")
			return result, nil
		})
		return await[R](ctx, ch)
	}
}

// Timed memoises successful results of fn for a fixed ttl. Failures are not
// cached and reach every caller.
func Timed[A, R any](s *Store, name string, ttl time.Duration, fn Func[A, R]) Func[A, R] {
	return func(ctx context.Context, args A) (R, error) {
		var zero R

		key, err := cacheKey(name, args)
		if err != nil {
			return zero, err
		}

		if e, ok := s.lookup(key); ok && e.err == nil {
			cacheRequests.WithLabelValues(name, "hit").Inc()
			r, _ := e.value.(R)
			return r, nil
		}
		cacheRequests.WithLabelValues(name, "miss").Inc()

		if err := ctx.Err(); err != nil {
			return zero, err
		}

		flightCtx := context.WithoutCancel(ctx)
		ch := s.flight.DoChan(key, func() (any, error) {
			result, err := fn(flightCtx, args)
			if err != nil {
				return nil, err
			}
			s.put(key, &entry{value: result, ttl: ttl, size: estimateSize(result)})
			return result, nil
		})
		return await[R](ctx, ch)
	}
}

// await returns the shared flight result, or ctx.Err() if the caller gives
// up first. The flight keeps running for the other waiters.
func await[R any](ctx context.Context, ch <-chan singleflight.Result) (R, error) {
	var zero R

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		r, _ := res.Val.(R)
		return r, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// replay returns the live entry for key, if any, as the wrapped function would.
func replay[R any](s *Store, key string) (R, error, bool) {
	var zero R

	e, ok := s.lookup(key)
	if !ok {
		return zero, nil, false
	}
	if e.err != nil {
		replayed := *e.err
		return zero, &replayed, true
	}

	r, _ := e.value.(R)
	return r, nil, true
}
