package jobmanager

import (
	"context"
	"fmt"

	"github.com/bobmcallan/stockdash/internal/models"
)

// executeJob dispatches a job to the refresh pipeline for its type.
func (jm *JobManager) executeJob(ctx context.Context, job models.Job) error {
	switch job.JobType {
	case models.JobTypeRefreshFinancials:
		return jm.refresh.RefreshFinancials(ctx, job.Ticker)
	case models.JobTypeRefreshEarnings:
		return jm.refresh.RefreshEarnings(ctx, job.Ticker)
	case models.JobTypeRefreshNews:
		return jm.refresh.RefreshNews(ctx, job.Ticker)
	default:
		return fmt.Errorf("unknown job type: %s", job.JobType)
	}
}
