package jobmanager

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/stockdash/internal/fallback"
	"github.com/bobmcallan/stockdash/internal/models"
)

// statusRejected counts submissions refused because the queue was full.
// It is never a job status.
const statusRejected = "rejected"

// Submit queues a job without blocking. It fails with ErrQueueFull when the
// queue is at capacity and ErrStopped when the manager is not running.
func (jm *JobManager) Submit(ctx context.Context, jobType, ticker string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	h := newHandle(models.Job{
		ID:        id,
		JobType:   jobType,
		Ticker:    ticker,
		Status:    models.JobStatusPending,
		CreatedAt: time.Now(),
	})

	jm.mu.Lock()
	defer jm.mu.Unlock()

	if !jm.running {
		return nil, ErrStopped
	}

	select {
	case jm.queue <- h:
	default:
		jm.counts[statusRejected]++
		refreshJobs.WithLabelValues(jobType, statusRejected).Inc()
		jm.logger.Warn().
			Str("job_type", jobType).
			Str("ticker", ticker).
			Int("queue_size", cap(jm.queue)).
			Msg("Refresh queue full, job rejected")
		return nil, ErrQueueFull
	}

	jm.recent = append(jm.recent, h)
	if len(jm.recent) > recentJobs {
		jm.recent = jm.recent[len(jm.recent)-recentJobs:]
	}

	jm.logger.Debug().
		Str("job_id", id).
		Str("job_type", jobType).
		Str("ticker", ticker).
		Int("pending", len(jm.queue)).
		Msg("Job queued")

	return h, nil
}

// SubmitRefresh is Submit for the refresh tier of a fallback orchestrator.
// On error the returned interface is nil, never a nil *Handle.
func (jm *JobManager) SubmitRefresh(ctx context.Context, jobType, ticker string) (fallback.Handle, error) {
	h, err := jm.Submit(ctx, jobType, ticker)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// start marks a dequeued job as running.
func (jm *JobManager) start(h *Handle) {
	h.mu.Lock()
	h.job.Status = models.JobStatusRunning
	h.job.StartedAt = time.Now()
	h.mu.Unlock()

	jm.mu.Lock()
	jm.active++
	jm.mu.Unlock()
}

// finish records the job's terminal status and releases its waiters.
func (jm *JobManager) finish(h *Handle, status string, err error) {
	h.mu.Lock()
	wasRunning := h.job.Status == models.JobStatusRunning
	h.job.Status = status
	h.job.CompletedAt = time.Now()
	if !h.job.StartedAt.IsZero() {
		h.job.DurationMS = h.job.CompletedAt.Sub(h.job.StartedAt).Milliseconds()
	}
	if err != nil {
		h.job.Error = err.Error()
	}
	h.err = err
	jobType := h.job.JobType
	h.mu.Unlock()

	jm.mu.Lock()
	if wasRunning {
		jm.active--
	}
	jm.counts[status]++
	jm.mu.Unlock()

	refreshJobs.WithLabelValues(jobType, status).Inc()
	close(h.done)
}
