package market

import (
	"context"

	"github.com/bobmcallan/stockdash/internal/cache"
	"github.com/bobmcallan/stockdash/internal/fallback"
	"github.com/bobmcallan/stockdash/internal/models"
	"github.com/bobmcallan/stockdash/internal/services/etl"
)

func (s *Service) newFinancialsChain() *fallback.Orchestrator[string, models.FinancialReport] {
	cfg := fallback.Config[string, models.FinancialReport]{
		Entity: "financials",
		Store: func(ctx context.Context, symbol, reportType string) ([]models.FinancialReport, error) {
			return s.storage.FinancialStore().GetReports(ctx, symbol, reportType, financialsLimit)
		},
		Refresh:        s.refresher(models.JobTypeRefreshFinancials),
		RefreshTimeout: s.config.Fallback.GetFinancialsETLTimeout(),
		Static:         staticFinancials,
		Logger:         s.logger,
	}

	var yahoo cache.Func[string, *models.SecondaryFinancials]
	if s.clients.Yahoo != nil {
		yahoo = cache.Timed(s.cache, "yahoo.financials", s.config.Cache.GetYahooTTL(),
			func(ctx context.Context, symbol string) (*models.SecondaryFinancials, error) {
				return s.clients.Yahoo.GetFinancials(ctx, symbol)
			})
	}
	cfg.Secondary = func(ctx context.Context, symbol, reportType string) ([]models.FinancialReport, error) {
		return s.secondaryFinancials(ctx, yahoo, symbol, reportType)
	}

	if s.clients.Finnhub != nil {
		legacy := cache.RateLimited(s.cache, "finnhub.financials", quotaOptions(s.config.RateLimit.Finnhub),
			func(ctx context.Context, a financialsArgs) ([]models.FinancialReport, error) {
				filings, err := s.clients.Finnhub.GetFinancialsReported(ctx, a.Symbol, a.Freq)
				if err != nil {
					return nil, err
				}
				reports := etl.TransformFinancials(a.Symbol, a.Freq, filings)
				for i := range reports {
					reports[i].Source = LegacySource
				}
				return reports, nil
			})
		cfg.Legacy = func(ctx context.Context, symbol, reportType string) ([]models.FinancialReport, error) {
			return legacy(ctx, financialsArgs{Symbol: symbol, Freq: reportType})
		}
	}

	return fallback.New(cfg)
}

// secondaryFinancials answers from the secondary source. A quarterly request
// with no quarterly statements downgrades to annual reports: stored ones
// first, then the secondary source's annual statements.
func (s *Service) secondaryFinancials(ctx context.Context, yahoo cache.Func[string, *models.SecondaryFinancials], symbol, reportType string) ([]models.FinancialReport, error) {
	var sf *models.SecondaryFinancials
	var yerr error
	if yahoo != nil {
		sf, yerr = yahoo(ctx, symbol)
	}
	if sf == nil {
		sf = &models.SecondaryFinancials{}
	}

	if reportType != models.ReportQuarterly {
		return sf.Annual, yerr
	}
	if len(sf.Quarterly) > 0 {
		return sf.Quarterly, nil
	}

	stored, err := s.storage.FinancialStore().GetReports(ctx, symbol, models.ReportAnnual, financialsLimit)
	if err != nil {
		s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Annual store lookup failed")
	} else if len(stored) > 0 {
		s.logger.Info().Str("symbol", symbol).Msg("No quarterly financials, using stored annual reports")
		return stored, nil
	}

	if len(sf.Annual) > 0 {
		s.logger.Info().Str("symbol", symbol).Msg("No quarterly statements from secondary source, using annual")
		return sf.Annual, nil
	}
	return nil, yerr
}
