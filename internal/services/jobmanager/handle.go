package jobmanager

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/stockdash/internal/fallback"
	"github.com/bobmcallan/stockdash/internal/models"
)

// Handle tracks one submitted job. Done is closed exactly once, after the
// job's final status has been recorded.
type Handle struct {
	mu   sync.Mutex
	job  models.Job
	err  error
	done chan struct{}
}

func newHandle(job models.Job) *Handle {
	return &Handle{job: job, done: make(chan struct{})}
}

// ID returns the job ID.
func (h *Handle) ID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job.ID
}

// Job returns a snapshot of the job record.
func (h *Handle) Job() models.Job {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job
}

// Done is closed when the job has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the job's error. It is nil until Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks until the job finishes, timeout elapses or ctx is cancelled.
// A timeout returns fallback.ErrRefreshTimeout and leaves the job running.
func (h *Handle) Wait(ctx context.Context, timeout time.Duration) error {
	return fallback.Wait(ctx, h, timeout)
}

var _ fallback.Handle = (*Handle)(nil)
