package surrealdb

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/stockdash/internal/common"
	"github.com/bobmcallan/stockdash/internal/interfaces"
	"github.com/bobmcallan/stockdash/internal/models"
)

// --- FinancialStore ---

type FinancialStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewFinancialStore(db *surrealdb.DB, logger *common.Logger) *FinancialStore {
	return &FinancialStore{db: db, logger: logger}
}

func financialKey(r models.FinancialReport) string {
	return fmt.Sprintf("%s_%s_%d_%d", r.Symbol, r.ReportType, r.Year, r.Quarter)
}

func (s *FinancialStore) GetReports(ctx context.Context, symbol, reportType string, limit int) ([]models.FinancialReport, error) {
	sql := fmt.Sprintf("SELECT * FROM %s WHERE symbol = $symbol AND report_type = $report_type ORDER BY year DESC, quarter DESC LIMIT %d",
		tableFinancials, limit)
	vars := map[string]any{"symbol": symbol, "report_type": reportType}

	reports, err := selectAll[models.FinancialReport](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get financial reports: %w", err)
	}
	return reports, nil
}

func (s *FinancialStore) SaveReports(ctx context.Context, reports []models.FinancialReport) error {
	for _, r := range reports {
		if err := upsert(ctx, s.db, tableFinancials, financialKey(r), r); err != nil {
			return err
		}
	}
	s.logger.Debug().Int("count", len(reports)).Msg("Financial reports saved")
	return nil
}

// --- EarningsStore ---

type EarningsStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewEarningsStore(db *surrealdb.DB, logger *common.Logger) *EarningsStore {
	return &EarningsStore{db: db, logger: logger}
}

func earningsKey(r models.EarningsRecord) string {
	return r.Symbol + "_" + r.Period.Format("2006-01-02")
}

func (s *EarningsStore) GetEarnings(ctx context.Context, symbol string, limit int) ([]models.EarningsRecord, error) {
	sql := fmt.Sprintf("SELECT * FROM %s WHERE symbol = $symbol ORDER BY period DESC LIMIT %d", tableEarnings, limit)
	vars := map[string]any{"symbol": symbol}

	records, err := selectAll[models.EarningsRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get earnings: %w", err)
	}
	return records, nil
}

func (s *EarningsStore) SaveEarnings(ctx context.Context, records []models.EarningsRecord) error {
	for _, r := range records {
		if err := upsert(ctx, s.db, tableEarnings, earningsKey(r), r); err != nil {
			return err
		}
	}
	s.logger.Debug().Int("count", len(records)).Msg("Earnings saved")
	return nil
}

// --- NewsStore ---

type NewsStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewNewsStore(db *surrealdb.DB, logger *common.Logger) *NewsStore {
	return &NewsStore{db: db, logger: logger}
}

// newsKey hashes the URL so the record ID stays short and free of punctuation.
func newsKey(a models.NewsArticle) string {
	sum := sha1.Sum([]byte(a.URL))
	return a.Symbol + "_" + hex.EncodeToString(sum[:])
}

func (s *NewsStore) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	sql := fmt.Sprintf("SELECT * FROM %s WHERE symbol = $symbol ORDER BY datetime DESC LIMIT %d", tableNews, limit)
	vars := map[string]any{"symbol": symbol}

	articles, err := selectAll[models.NewsArticle](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get news: %w", err)
	}
	return articles, nil
}

func (s *NewsStore) SaveNews(ctx context.Context, articles []models.NewsArticle) error {
	for _, a := range articles {
		if err := upsert(ctx, s.db, tableNews, newsKey(a), a); err != nil {
			return err
		}
	}
	s.logger.Debug().Int("count", len(articles)).Msg("News saved")
	return nil
}

// --- PriceStore ---

type PriceStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewPriceStore(db *surrealdb.DB, logger *common.Logger) *PriceStore {
	return &PriceStore{db: db, logger: logger}
}

func priceKey(b models.PriceBar) string {
	return b.Symbol + "_" + b.Date.Format("2006-01-02")
}

// GetPrices returns the newest limit bars, oldest first.
func (s *PriceStore) GetPrices(ctx context.Context, symbol string, limit int) ([]models.PriceBar, error) {
	sql := fmt.Sprintf("SELECT * FROM %s WHERE symbol = $symbol ORDER BY date DESC LIMIT %d", tablePrices, limit)
	vars := map[string]any{"symbol": symbol}

	bars, err := selectAll[models.PriceBar](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get prices: %w", err)
	}
	slices.Reverse(bars)
	return bars, nil
}

func (s *PriceStore) SavePrices(ctx context.Context, bars []models.PriceBar) error {
	for _, b := range bars {
		if err := upsert(ctx, s.db, tablePrices, priceKey(b), b); err != nil {
			return err
		}
	}
	s.logger.Debug().Int("count", len(bars)).Msg("Prices saved")
	return nil
}

// Compile-time checks
var (
	_ interfaces.FinancialStore = (*FinancialStore)(nil)
	_ interfaces.EarningsStore  = (*EarningsStore)(nil)
	_ interfaces.NewsStore      = (*NewsStore)(nil)
	_ interfaces.PriceStore     = (*PriceStore)(nil)
)
