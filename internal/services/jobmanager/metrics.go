package jobmanager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var refreshJobs = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "stockdash_refresh_jobs_total",
	Help: "Refresh jobs by type and final status (completed, failed, cancelled, rejected).",
}, []string{"job_type", "status"})
