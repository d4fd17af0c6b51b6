// Package interfaces defines service contracts for stockdash
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/stockdash/internal/models"
)

// FinnhubClient provides access to the Finnhub API. It feeds the refresh
// jobs and serves as the legacy last-resort source.
type FinnhubClient interface {
	// GetFinancialsReported retrieves as-reported filings, freq "quarterly" or "annual"
	GetFinancialsReported(ctx context.Context, symbol, freq string) ([]models.ReportedFiling, error)

	// GetEarnings retrieves reported EPS against estimates
	GetEarnings(ctx context.Context, symbol string) ([]models.EarningsSurprise, error)

	// GetCompanyNews retrieves articles published between from and to
	GetCompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]models.CompanyNews, error)
}

// YahooClient provides access to Yahoo Finance, the secondary source
type YahooClient interface {
	// GetFinancials retrieves quarterly and annual income statements
	GetFinancials(ctx context.Context, symbol string) (*models.SecondaryFinancials, error)

	// GetEarningsHistory retrieves recent reported EPS against estimates
	GetEarningsHistory(ctx context.Context, symbol string) ([]models.EarningsRecord, error)
}

// AlphaVantageClient provides access to Alpha Vantage daily prices
type AlphaVantageClient interface {
	// GetDaily retrieves the compact daily series, oldest first
	GetDaily(ctx context.Context, symbol string) ([]models.PriceBar, error)
}
