package fallback

import (
	"context"
	"errors"
	"time"
)

// ErrRefreshTimeout is returned by Wait when a refresh outlives its timeout.
// The refresh itself keeps running.
var ErrRefreshTimeout = errors.New("refresh timed out")

// Handle is a submitted background refresh.
type Handle interface {
	// Done is closed when the refresh has finished, successfully or not.
	Done() <-chan struct{}
	// Err returns the refresh outcome once Done is closed.
	Err() error
}

// Wait blocks until h finishes, timeout elapses or ctx is cancelled.
// Only the waiter gives up; the refresh is never cancelled from here.
func Wait(ctx context.Context, h Handle, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.Done():
		return h.Err()
	case <-timer.C:
		return ErrRefreshTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
