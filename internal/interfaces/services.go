// Package interfaces defines service contracts for stockdash
package interfaces

import (
	"context"

	"github.com/bobmcallan/stockdash/internal/cache"
	"github.com/bobmcallan/stockdash/internal/fallback"
	"github.com/bobmcallan/stockdash/internal/models"
)

// MarketService resolves market data through the cache and fallback chain.
// Lookups never fail for a missing symbol; absence is reported in the result.
type MarketService interface {
	// GetFinancials returns the newest reports, freq "quarterly" or "annual"
	GetFinancials(ctx context.Context, symbol, freq string) fallback.Result[models.FinancialReport]

	// GetEarnings returns the newest earnings periods
	GetEarnings(ctx context.Context, symbol string) fallback.Result[models.EarningsRecord]

	// GetNews returns up to days of the most recent articles
	GetNews(ctx context.Context, symbol string, days int) fallback.Result[models.NewsArticle]

	// GetDailyPrices returns the daily price series with a 20-day moving average
	GetDailyPrices(ctx context.Context, symbol string) ([]models.PriceBar, error)

	// GetDashboard aggregates every entity for each symbol
	GetDashboard(ctx context.Context, symbols []string) ([]models.DashboardEntry, error)

	// CacheStats reports cache contents
	CacheStats() cache.Stats

	// ClearCache drops every cached result
	ClearCache()

	// ClearRateLimits resets every rate-limit window
	ClearRateLimits()
}

// RefreshService runs the extract, transform and load pipeline that
// repopulates the store for one symbol.
type RefreshService interface {
	RefreshFinancials(ctx context.Context, symbol string) error
	RefreshEarnings(ctx context.Context, symbol string) error
	RefreshNews(ctx context.Context, symbol string) error
}

// RefreshQueue runs refresh jobs in the background
type RefreshQueue interface {
	// SubmitRefresh queues a job without blocking and returns its handle
	SubmitRefresh(ctx context.Context, jobType, ticker string) (fallback.Handle, error)

	// Stats summarises the worker pool
	Stats() models.JobStats

	// Jobs returns recent jobs, newest first
	Jobs() []models.Job
}
