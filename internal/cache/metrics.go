package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockdash_cache_requests_total",
		Help: "Cache lookups by operation and outcome (hit, error_hit, miss).",
	}, []string{"operation", "result"})

	rateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockdash_ratelimit_rejections_total",
		Help: "Calls rejected because the per-key minute quota was used up.",
	}, []string{"operation"})

	rateLimitRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockdash_ratelimit_retries_total",
		Help: "Backoff retries taken after a rejected or failed call.",
	}, []string{"operation"})
)
