// Package market resolves financials, earnings and news through the cache
// and fallback chain, serves cached daily prices and aggregates the
// dashboard.
package market

import (
	"context"

	"github.com/bobmcallan/stockdash/internal/cache"
	"github.com/bobmcallan/stockdash/internal/common"
	"github.com/bobmcallan/stockdash/internal/fallback"
	"github.com/bobmcallan/stockdash/internal/interfaces"
	"github.com/bobmcallan/stockdash/internal/models"
)

// Store limits per entity lookup
const (
	financialsLimit = 4
	earningsLimit   = 8
	defaultNewsDays = 30
	priceHistory    = 100 // compact Alpha Vantage series length
	sentimentSample = 5   // newest articles averaged on the dashboard
)

// LegacySource marks records fetched straight from Finnhub.
const LegacySource = "finnhub"

// Clients bundles the upstream APIs. Yahoo and AlphaVantage may be nil,
// which disables the secondary tier and price lookups respectively.
type Clients struct {
	Finnhub      interfaces.FinnhubClient
	Yahoo        interfaces.YahooClient
	AlphaVantage interfaces.AlphaVantageClient
}

// Service implements MarketService
type Service struct {
	storage interfaces.StorageManager
	clients Clients
	queue   interfaces.RefreshQueue
	cache   *cache.Store
	logger  *common.Logger
	config  *common.Config

	financials *fallback.Orchestrator[string, models.FinancialReport] // params: report type
	earnings   *fallback.Orchestrator[struct{}, models.EarningsRecord]
	news       *fallback.Orchestrator[int, models.NewsArticle] // params: days

	fetchFinancials cache.Func[financialsArgs, fallback.Result[models.FinancialReport]]
	fetchEarnings   cache.Func[string, fallback.Result[models.EarningsRecord]]
	fetchNews       cache.Func[newsArgs, fallback.Result[models.NewsArticle]]
	fetchPrices     cache.Func[string, []models.PriceBar]
}

// financialsArgs identifies one cached financials lookup.
type financialsArgs struct {
	Symbol string `json:"symbol"`
	Freq   string `json:"freq"`
}

func (a financialsArgs) LimitKey() string { return a.Symbol }

// newsArgs identifies one cached news lookup.
type newsArgs struct {
	Symbol string `json:"symbol"`
	Days   int    `json:"days"`
}

func (a newsArgs) LimitKey() string { return a.Symbol }

// NewService creates a new market service. queue may be nil, in which case
// lookups skip the background refresh tier.
func NewService(
	storage interfaces.StorageManager,
	clients Clients,
	queue interfaces.RefreshQueue,
	store *cache.Store,
	logger *common.Logger,
	config *common.Config,
) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if config == nil {
		config = common.NewDefaultConfig()
	}
	if store == nil {
		store = cache.NewStore(cache.WithLogger(logger))
	}

	s := &Service{
		storage: storage,
		clients: clients,
		queue:   queue,
		cache:   store,
		logger:  logger,
		config:  config,
	}

	s.financials = s.newFinancialsChain()
	s.earnings = s.newEarningsChain()
	s.news = s.newNewsChain()

	s.fetchFinancials = cache.Cached(store, "financials", cacheOptions(config.Cache.Financials),
		func(ctx context.Context, a financialsArgs) (fallback.Result[models.FinancialReport], error) {
			return s.financials.Fetch(ctx, a.Symbol, models.ReportTypeFor(a.Freq)), nil
		})
	s.fetchEarnings = cache.Cached(store, "earnings", cacheOptions(config.Cache.Earnings),
		func(ctx context.Context, symbol string) (fallback.Result[models.EarningsRecord], error) {
			return s.earnings.Fetch(ctx, symbol, struct{}{}), nil
		})
	s.fetchNews = cache.Cached(store, "news", cacheOptions(config.Cache.News),
		func(ctx context.Context, a newsArgs) (fallback.Result[models.NewsArticle], error) {
			return s.news.Fetch(ctx, a.Symbol, a.Days), nil
		})
	s.fetchPrices = cache.Cached(store, "prices", cacheOptions(config.Cache.Prices),
		cache.RateLimited(store, "alphavantage.daily", quotaOptions(config.RateLimit.AlphaVantage), s.loadDaily))

	return s
}

// GetFinancials returns the newest reports, freq "quarterly" or "annual"
func (s *Service) GetFinancials(ctx context.Context, symbol, freq string) fallback.Result[models.FinancialReport] {
	result, err := s.fetchFinancials(ctx, financialsArgs{Symbol: symbol, Freq: models.ReportTypeFor(freq)})
	return withError(result, err)
}

// GetEarnings returns the newest earnings periods
func (s *Service) GetEarnings(ctx context.Context, symbol string) fallback.Result[models.EarningsRecord] {
	result, err := s.fetchEarnings(ctx, symbol)
	return withError(result, err)
}

// GetNews returns up to days of the most recent articles. days below 1
// defaults to 30.
func (s *Service) GetNews(ctx context.Context, symbol string, days int) fallback.Result[models.NewsArticle] {
	if days <= 0 {
		days = defaultNewsDays
	}
	result, err := s.fetchNews(ctx, newsArgs{Symbol: symbol, Days: days})
	return withError(result, err)
}

// CacheStats reports cache contents
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// ClearCache drops every cached result
func (s *Service) ClearCache() {
	s.cache.Clear()
}

// ClearRateLimits resets every rate-limit window
func (s *Service) ClearRateLimits() {
	s.cache.ClearRateLimits()
}

// refresher returns the refresh tier for jobType, or nil without a queue.
func (s *Service) refresher(jobType string) func(ctx context.Context, symbol string) (fallback.Handle, error) {
	if s.queue == nil {
		return nil
	}
	return func(ctx context.Context, symbol string) (fallback.Handle, error) {
		return s.queue.SubmitRefresh(ctx, jobType, symbol)
	}
}

// withError reports a lookup error in the result instead of returning it.
func withError[T any](r fallback.Result[T], err error) fallback.Result[T] {
	if err != nil && r.Error == "" {
		r.Error = err.Error()
	}
	return r
}

func cacheOptions(c common.CacheTTLConfig) cache.Options {
	return cache.Options{
		BaseTTL:  c.GetBaseTTL(),
		MaxTTL:   c.GetMaxTTL(),
		ErrorTTL: c.GetErrorTTL(),
	}
}

func quotaOptions(c common.QuotaConfig) cache.RateLimitOptions {
	return cache.RateLimitOptions{
		CallsPerMinute: c.CallsPerMinute,
		RetryAfter:     c.GetRetryAfter(),
		MaxRetries:     c.MaxRetries,
	}
}

var _ interfaces.MarketService = (*Service)(nil)
