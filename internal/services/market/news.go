package market

import (
	"context"
	"time"

	"github.com/bobmcallan/stockdash/internal/cache"
	"github.com/bobmcallan/stockdash/internal/fallback"
	"github.com/bobmcallan/stockdash/internal/models"
	"github.com/bobmcallan/stockdash/internal/services/etl"
)

// newNewsChain has no secondary or static tier; no other provider carries
// company news.
func (s *Service) newNewsChain() *fallback.Orchestrator[int, models.NewsArticle] {
	cfg := fallback.Config[int, models.NewsArticle]{
		Entity: "news",
		Store: func(ctx context.Context, symbol string, days int) ([]models.NewsArticle, error) {
			return s.storage.NewsStore().GetNews(ctx, symbol, days)
		},
		Refresh:        s.refresher(models.JobTypeRefreshNews),
		RefreshTimeout: s.config.Fallback.GetNewsETLTimeout(),
		Logger:         s.logger,
	}

	if s.clients.Finnhub != nil {
		legacy := cache.RateLimited(s.cache, "finnhub.news", quotaOptions(s.config.RateLimit.Finnhub),
			func(ctx context.Context, a newsArgs) ([]models.NewsArticle, error) {
				to := time.Now().UTC()
				raw, err := s.clients.Finnhub.GetCompanyNews(ctx, a.Symbol, to.AddDate(0, 0, -a.Days), to)
				if err != nil {
					return nil, err
				}
				return etl.TransformNews(a.Symbol, raw), nil
			})
		cfg.Legacy = func(ctx context.Context, symbol string, days int) ([]models.NewsArticle, error) {
			return legacy(ctx, newsArgs{Symbol: symbol, Days: days})
		}
	}

	return fallback.New(cfg)
}
