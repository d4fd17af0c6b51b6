// Package etl refreshes the store from Finnhub: extract, transform, then
// upsert by natural key so reruns and concurrent runs are harmless.
package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/stockdash/internal/common"
	"github.com/bobmcallan/stockdash/internal/interfaces"
	"github.com/bobmcallan/stockdash/internal/models"
)

// DefaultNewsDays is how far back a news refresh reaches.
const DefaultNewsDays = 30

// Service implements RefreshService
type Service struct {
	finnhub  interfaces.FinnhubClient
	storage  interfaces.StorageManager
	logger   *common.Logger
	newsDays int
	now      func() time.Time
}

// NewService creates a new refresh service
func NewService(finnhub interfaces.FinnhubClient, storage interfaces.StorageManager, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		finnhub:  finnhub,
		storage:  storage,
		logger:   logger,
		newsDays: DefaultNewsDays,
		now:      time.Now,
	}
}

// SetNewsDays sets the news lookback window. Values below 1 are ignored.
func (s *Service) SetNewsDays(days int) {
	if days > 0 {
		s.newsDays = days
	}
}

// RefreshFinancials loads quarterly and annual filings. A failure on one
// frequency does not stop the other; both errors are returned joined.
func (s *Service) RefreshFinancials(ctx context.Context, symbol string) error {
	var errs []error
	saved := 0

	for _, freq := range []string{models.ReportQuarterly, models.ReportAnnual} {
		filings, err := s.finnhub.GetFinancialsReported(ctx, symbol, freq)
		if err != nil {
			errs = append(errs, fmt.Errorf("extract %s financials for %s: %w", freq, symbol, err))
			continue
		}

		reports := TransformFinancials(symbol, freq, filings)
		if len(reports) == 0 {
			s.logger.Info().Str("symbol", symbol).Str("freq", freq).Msg("No filings to load")
			continue
		}

		if err := s.storage.FinancialStore().SaveReports(ctx, reports); err != nil {
			errs = append(errs, fmt.Errorf("load %s financials for %s: %w", freq, symbol, err))
			continue
		}
		saved += len(reports)
	}

	s.logger.Info().Str("symbol", symbol).Int("reports", saved).Msg("Financials refresh finished")
	return errors.Join(errs...)
}

// RefreshEarnings loads reported earnings against estimates.
func (s *Service) RefreshEarnings(ctx context.Context, symbol string) error {
	raw, err := s.finnhub.GetEarnings(ctx, symbol)
	if err != nil {
		return fmt.Errorf("extract earnings for %s: %w", symbol, err)
	}

	records := TransformEarnings(symbol, raw)
	if skipped := len(raw) - len(records); skipped > 0 {
		s.logger.Warn().Str("symbol", symbol).Int("skipped", skipped).Msg("Earnings without a valid period skipped")
	}
	if len(records) == 0 {
		return nil
	}

	if err := s.storage.EarningsStore().SaveEarnings(ctx, records); err != nil {
		return fmt.Errorf("load earnings for %s: %w", symbol, err)
	}

	s.logger.Info().Str("symbol", symbol).Int("records", len(records)).Msg("Earnings refresh finished")
	return nil
}

// RefreshNews loads company news from the last newsDays days.
func (s *Service) RefreshNews(ctx context.Context, symbol string) error {
	to := s.now().UTC()
	from := to.AddDate(0, 0, -s.newsDays)

	raw, err := s.finnhub.GetCompanyNews(ctx, symbol, from, to)
	if err != nil {
		return fmt.Errorf("extract news for %s: %w", symbol, err)
	}

	articles := TransformNews(symbol, raw)
	if len(articles) == 0 {
		return nil
	}

	if err := s.storage.NewsStore().SaveNews(ctx, articles); err != nil {
		return fmt.Errorf("load news for %s: %w", symbol, err)
	}

	s.logger.Info().Str("symbol", symbol).Int("articles", len(articles)).Msg("News refresh finished")
	return nil
}

var _ interfaces.RefreshService = (*Service)(nil)
