// Package interfaces defines service contracts for stockdash
package interfaces

import (
	"context"

	"github.com/bobmcallan/stockdash/internal/models"
)

// StorageManager coordinates the market data stores
type StorageManager interface {
	// Storage accessors
	FinancialStore() FinancialStore
	EarningsStore() EarningsStore
	NewsStore() NewsStore
	PriceStore() PriceStore

	// PurgeAll deletes every stored record. Returns counts of deleted records per table.
	PurgeAll(ctx context.Context) (map[string]int, error)

	// Lifecycle
	Close() error
}

// FinancialStore persists financial reports. Saves upsert by
// (symbol, report type, year, quarter).
type FinancialStore interface {
	// GetReports returns up to limit reports of reportType, newest first
	GetReports(ctx context.Context, symbol, reportType string, limit int) ([]models.FinancialReport, error)
	SaveReports(ctx context.Context, reports []models.FinancialReport) error
}

// EarningsStore persists earnings records. Saves upsert by (symbol, period).
type EarningsStore interface {
	// GetEarnings returns up to limit records, newest period first
	GetEarnings(ctx context.Context, symbol string, limit int) ([]models.EarningsRecord, error)
	SaveEarnings(ctx context.Context, records []models.EarningsRecord) error
}

// NewsStore persists news articles. Saves upsert by (symbol, URL).
type NewsStore interface {
	// GetNews returns up to limit articles, most recently published first
	GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error)
	SaveNews(ctx context.Context, articles []models.NewsArticle) error
}

// PriceStore persists daily price bars. Saves upsert by (symbol, date).
type PriceStore interface {
	// GetPrices returns up to limit bars, oldest first
	GetPrices(ctx context.Context, symbol string, limit int) ([]models.PriceBar, error)
	SavePrices(ctx context.Context, bars []models.PriceBar) error
}
