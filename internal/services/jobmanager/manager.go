// Package jobmanager runs symbol refresh jobs on a bounded worker pool.
// Callers submit a job and get a Handle they can wait on with a timeout;
// giving up on the wait never cancels the job.
package jobmanager

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bobmcallan/stockdash/internal/common"
	"github.com/bobmcallan/stockdash/internal/interfaces"
	"github.com/bobmcallan/stockdash/internal/models"
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken.
	ErrQueueFull = errors.New("refresh queue is full")
	// ErrStopped is returned by Submit after Stop, and is the outcome of
	// jobs still queued when the manager stopped.
	ErrStopped = errors.New("job manager stopped")
)

// recentJobs bounds the job history kept for the admin endpoint.
const recentJobs = 50

// JobManager owns the refresh queue and its worker goroutines.
type JobManager struct {
	refresh interfaces.RefreshService
	logger  *common.Logger
	config  common.FallbackConfig

	queue chan *Handle

	mu      sync.Mutex
	running bool
	active  int
	counts  map[string]int // terminal status -> count
	recent  []*Handle      // newest last
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewJobManager creates a stopped job manager. Call Start before Submit.
func NewJobManager(refresh interfaces.RefreshService, logger *common.Logger, config common.FallbackConfig) *JobManager {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &JobManager{
		refresh: refresh,
		logger:  logger,
		config:  config,
		queue:   make(chan *Handle, config.GetQueueSize()),
		counts:  make(map[string]int),
	}
}

// safeGo launches a goroutine with panic recovery and logging.
func (jm *JobManager) safeGo(name string, fn func()) {
	jm.wg.Add(1)
	go func() {
		defer jm.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				jm.logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic in job manager goroutine")
			}
		}()
		fn()
	}()
}

// Start launches the worker pool.
// Safe to call multiple times; stops any existing workers before starting.
func (jm *JobManager) Start() {
	jm.Stop()

	ctx, cancel := context.WithCancel(context.Background())

	jm.mu.Lock()
	jm.cancel = cancel
	jm.running = true
	jm.mu.Unlock()

	workers := jm.config.GetWorkers()
	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("refresh-worker-%d", i)
		jm.safeGo(name, func() { jm.processLoop(ctx) })
	}

	jm.logger.Info().
		Int("workers", workers).
		Int("queue_size", cap(jm.queue)).
		Msg("Job manager started")
}

// Stop cancels the workers, waits for running jobs to return and fails
// every job still queued with ErrStopped.
func (jm *JobManager) Stop() {
	jm.mu.Lock()
	wasRunning := jm.running
	jm.running = false
	if jm.cancel != nil {
		jm.cancel()
		jm.cancel = nil
	}
	jm.mu.Unlock()

	jm.wg.Wait()

	for {
		select {
		case h := <-jm.queue:
			jm.finish(h, models.JobStatusCancelled, ErrStopped)
		default:
			if wasRunning {
				jm.logger.Info().Msg("Job manager stopped")
			}
			return
		}
	}
}

// processLoop runs queued jobs until ctx is cancelled.
func (jm *JobManager) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case h := <-jm.queue:
			if ctx.Err() != nil {
				jm.finish(h, models.JobStatusCancelled, ErrStopped)
				return
			}
			jm.run(ctx, h)
		}
	}
}

// run executes one job and records its outcome.
func (jm *JobManager) run(ctx context.Context, h *Handle) {
	jm.start(h)

	start := time.Now()
	execErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				jm.logger.Error().
					Str("job_id", h.ID()).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic in refresh job")
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return jm.executeJob(ctx, h.Job())
	}()
	elapsed := time.Since(start)

	job := h.Job()
	if execErr != nil {
		jm.logger.Warn().
			Str("job_id", job.ID).
			Str("job_type", job.JobType).
			Str("ticker", job.Ticker).
			Int64("duration_ms", elapsed.Milliseconds()).
			Err(execErr).
			Msg("Job failed")
		jm.finish(h, models.JobStatusFailed, execErr)
		return
	}

	jm.logger.Debug().
		Str("job_id", job.ID).
		Str("job_type", job.JobType).
		Str("ticker", job.Ticker).
		Int64("duration_ms", elapsed.Milliseconds()).
		Msg("Job completed")
	jm.finish(h, models.JobStatusCompleted, nil)
}

// Stats summarises the pool and the outcomes seen since construction.
func (jm *JobManager) Stats() models.JobStats {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	return models.JobStats{
		Workers:   jm.config.GetWorkers(),
		QueueSize: cap(jm.queue),
		Pending:   len(jm.queue),
		Running:   jm.active,
		Completed: jm.counts[models.JobStatusCompleted],
		Failed:    jm.counts[models.JobStatusFailed],
		Cancelled: jm.counts[models.JobStatusCancelled],
		Rejected:  jm.counts[statusRejected],
	}
}

// Jobs returns the most recently submitted jobs, newest first.
func (jm *JobManager) Jobs() []models.Job {
	jm.mu.Lock()
	recent := make([]*Handle, len(jm.recent))
	copy(recent, jm.recent)
	jm.mu.Unlock()

	jobs := make([]models.Job, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		jobs = append(jobs, recent[i].Job())
	}
	return jobs
}

var _ interfaces.RefreshQueue = (*JobManager)(nil)
