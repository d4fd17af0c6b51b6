package models

import "time"

// Job represents one background refresh of a symbol's stored data.
type Job struct {
	ID          string    `json:"id"`
	JobType     string    `json:"job_type"`
	Ticker      string    `json:"ticker"`
	Status      string    `json:"status"` // "pending", "running", "completed", "failed", "cancelled"
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
}

// Job type constants
const (
	JobTypeRefreshFinancials = "refresh_financials"
	JobTypeRefreshEarnings   = "refresh_earnings"
	JobTypeRefreshNews       = "refresh_news"
)

// Job status constants
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// JobStats summarises the refresh worker pool.
type JobStats struct {
	Workers   int `json:"workers"`
	QueueSize int `json:"queue_size"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Rejected  int `json:"rejected"`
}
