package fallback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fallbackResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockdash_fallback_results_total",
		Help: "Fallback results by entity and the tier that answered.",
	}, []string{"entity", "source"})

	fallbackTierErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockdash_fallback_tier_errors_total",
		Help: "Errors swallowed by a fallback tier before moving to the next one.",
	}, []string{"entity", "tier"})
)
