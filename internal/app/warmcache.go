package app

import (
	"context"
	"os"
	"time"

	"github.com/bobmcallan/stockdash/internal/common"
	"github.com/bobmcallan/stockdash/internal/interfaces"
)

// warmCache pre-fetches the dashboard symbols on startup so the first request is served from cache.
func warmCache(ctx context.Context, marketService interfaces.MarketService, symbols []string, logger *common.Logger) {
	if os.Getenv("STOCKDASH_WARM_CACHE") == "off" {
		logger.Info().Msg("Warm cache: disabled via STOCKDASH_WARM_CACHE=off")
		return
	}

	if len(symbols) == 0 {
		logger.Info().Msg("Warm cache: no dashboard symbols configured, skipping")
		return
	}

	start := time.Now()
	logger.Info().Strs("symbols", symbols).Msg("Warm cache: starting")

	entries, err := marketService.GetDashboard(ctx, symbols)
	if err != nil {
		logger.Warn().Err(err).Msg("Warm cache: dashboard aggregation failed")
		return
	}

	incomplete := 0
	for _, e := range entries {
		if len(e.Errors) > 0 {
			incomplete++
		}
	}

	logger.Info().
		Int("symbols", len(entries)).
		Int("incomplete", incomplete).
		Dur("elapsed", time.Since(start)).
		Msg("Warm cache: complete")
}
