package market

import (
	"context"

	"github.com/bobmcallan/stockdash/internal/cache"
	"github.com/bobmcallan/stockdash/internal/fallback"
	"github.com/bobmcallan/stockdash/internal/models"
	"github.com/bobmcallan/stockdash/internal/services/etl"
)

func (s *Service) newEarningsChain() *fallback.Orchestrator[struct{}, models.EarningsRecord] {
	cfg := fallback.Config[struct{}, models.EarningsRecord]{
		Entity: "earnings",
		Store: func(ctx context.Context, symbol string, _ struct{}) ([]models.EarningsRecord, error) {
			return s.storage.EarningsStore().GetEarnings(ctx, symbol, earningsLimit)
		},
		Refresh:        s.refresher(models.JobTypeRefreshEarnings),
		RefreshTimeout: s.config.Fallback.GetEarningsETLTimeout(),
		Static: func(symbol string, _ struct{}) []models.EarningsRecord {
			return staticEarnings(symbol)
		},
		Logger: s.logger,
	}

	if s.clients.Yahoo != nil {
		yahoo := cache.Timed(s.cache, "yahoo.earnings", s.config.Cache.GetYahooTTL(), s.clients.Yahoo.GetEarningsHistory)
		cfg.Secondary = func(ctx context.Context, symbol string, _ struct{}) ([]models.EarningsRecord, error) {
			return yahoo(ctx, symbol)
		}
	}

	if s.clients.Finnhub != nil {
		legacy := cache.RateLimited(s.cache, "finnhub.earnings", quotaOptions(s.config.RateLimit.Finnhub),
			func(ctx context.Context, symbol string) ([]models.EarningsRecord, error) {
				raw, err := s.clients.Finnhub.GetEarnings(ctx, symbol)
				if err != nil {
					return nil, err
				}
				records := etl.TransformEarnings(symbol, raw)
				for i := range records {
					records[i].Source = LegacySource
				}
				return records, nil
			})
		cfg.Legacy = func(ctx context.Context, symbol string, _ struct{}) ([]models.EarningsRecord, error) {
			return legacy(ctx, symbol)
		}
	}

	return fallback.New(cfg)
}
