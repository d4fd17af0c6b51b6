package market

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bobmcallan/stockdash/internal/cache"
	"github.com/bobmcallan/stockdash/internal/common"
	"github.com/bobmcallan/stockdash/internal/fallback"
	"github.com/bobmcallan/stockdash/internal/interfaces"
	"github.com/bobmcallan/stockdash/internal/models"
)

// --- storage ---

type memStorage struct {
	mu         sync.Mutex
	financials map[string][]models.FinancialReport // symbol:type
	earnings   map[string][]models.EarningsRecord
	news       map[string][]models.NewsArticle
	prices     map[string][]models.PriceBar
	reads      int
}

func newMemStorage() *memStorage {
	return &memStorage{
		financials: make(map[string][]models.FinancialReport),
		earnings:   make(map[string][]models.EarningsRecord),
		news:       make(map[string][]models.NewsArticle),
		prices:     make(map[string][]models.PriceBar),
	}
}

func (m *memStorage) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *memStorage) FinancialStore() interfaces.FinancialStore { return memFinancials{m} }
func (m *memStorage) EarningsStore() interfaces.EarningsStore   { return memEarnings{m} }
func (m *memStorage) NewsStore() interfaces.NewsStore           { return memNews{m} }
func (m *memStorage) PriceStore() interfaces.PriceStore         { return memPrices{m} }
func (m *memStorage) PurgeAll(context.Context) (map[string]int, error) {
	return map[string]int{}, nil
}
func (m *memStorage) Close() error { return nil }

type memFinancials struct{ m *memStorage }

func (s memFinancials) GetReports(_ context.Context, symbol, reportType string, limit int) ([]models.FinancialReport, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.reads++
	reports := s.m.financials[symbol+":"+reportType]
	if len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

func (s memFinancials) SaveReports(_ context.Context, reports []models.FinancialReport) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, r := range reports {
		key := r.Symbol + ":" + r.ReportType
		s.m.financials[key] = append(s.m.financials[key], r)
	}
	return nil
}

type memEarnings struct{ m *memStorage }

func (s memEarnings) GetEarnings(_ context.Context, symbol string, limit int) ([]models.EarningsRecord, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.reads++
	records := s.m.earnings[symbol]
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s memEarnings) SaveEarnings(_ context.Context, records []models.EarningsRecord) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, r := range records {
		s.m.earnings[r.Symbol] = append(s.m.earnings[r.Symbol], r)
	}
	return nil
}

type memNews struct{ m *memStorage }

func (s memNews) GetNews(_ context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.reads++
	articles := s.m.news[symbol]
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

func (s memNews) SaveNews(_ context.Context, articles []models.NewsArticle) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, a := range articles {
		s.m.news[a.Symbol] = append(s.m.news[a.Symbol], a)
	}
	return nil
}

type memPrices struct{ m *memStorage }

func (s memPrices) GetPrices(_ context.Context, symbol string, limit int) ([]models.PriceBar, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	bars := s.m.prices[symbol]
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return append([]models.PriceBar(nil), bars...), nil
}

func (s memPrices) SavePrices(_ context.Context, bars []models.PriceBar) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, b := range bars {
		s.m.prices[b.Symbol] = append(s.m.prices[b.Symbol], b)
	}
	return nil
}

// --- upstream clients ---

type mockFinnhub struct {
	mu       sync.Mutex
	calls    int
	filings  []models.ReportedFiling
	earnings []models.EarningsSurprise
	news     []models.CompanyNews
	err      error
}

func (m *mockFinnhub) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// hit counts a call and fails it the way an HTTP client would when ctx is done.
func (m *mockFinnhub) hit(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.err
}

func (m *mockFinnhub) GetFinancialsReported(ctx context.Context, _, _ string) ([]models.ReportedFiling, error) {
	if err := m.hit(ctx); err != nil {
		return nil, err
	}
	return m.filings, nil
}

func (m *mockFinnhub) GetEarnings(ctx context.Context, _ string) ([]models.EarningsSurprise, error) {
	if err := m.hit(ctx); err != nil {
		return nil, err
	}
	return m.earnings, nil
}

func (m *mockFinnhub) GetCompanyNews(ctx context.Context, _ string, _, _ time.Time) ([]models.CompanyNews, error) {
	if err := m.hit(ctx); err != nil {
		return nil, err
	}
	return m.news, nil
}

type mockYahoo struct {
	mu         sync.Mutex
	calls      int
	financials *models.SecondaryFinancials
	earnings   []models.EarningsRecord
	err        error
}

func (m *mockYahoo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockYahoo) GetFinancials(context.Context, string) (*models.SecondaryFinancials, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.financials, m.err
}

func (m *mockYahoo) GetEarningsHistory(context.Context, string) ([]models.EarningsRecord, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.earnings, m.err
}

type mockAlphaVantage struct {
	mu    sync.Mutex
	calls int
	bars  []models.PriceBar
	err   error
}

func (m *mockAlphaVantage) GetDaily(_ context.Context, symbol string) ([]models.PriceBar, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	bars := make([]models.PriceBar, len(m.bars))
	copy(bars, m.bars)
	return bars, nil
}

// --- refresh queue ---

type doneHandle struct {
	done chan struct{}
	err  error
}

func (h *doneHandle) Done() <-chan struct{} { return h.done }
func (h *doneHandle) Err() error            { return h.err }

// mockQueue runs each refresh synchronously through run before returning
// an already finished handle.
type mockQueue struct {
	mu   sync.Mutex
	jobs []string // jobType:ticker
	run  func(jobType, ticker string) error
}

func (q *mockQueue) SubmitRefresh(_ context.Context, jobType, ticker string) (fallback.Handle, error) {
	q.mu.Lock()
	q.jobs = append(q.jobs, jobType+":"+ticker)
	q.mu.Unlock()

	h := &doneHandle{done: make(chan struct{})}
	if q.run != nil {
		h.err = q.run(jobType, ticker)
	}
	close(h.done)
	return h, nil
}

func (q *mockQueue) Stats() models.JobStats { return models.JobStats{} }
func (q *mockQueue) Jobs() []models.Job     { return nil }

func (q *mockQueue) submitted() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.jobs...)
}

var errRefreshFailed = errors.New("etl failed")

// --- fixture ---

type fixture struct {
	storage *memStorage
	finnhub *mockFinnhub
	yahoo   *mockYahoo
	av      *mockAlphaVantage
	queue   *mockQueue
	config  *common.Config
	svc     *Service
}

func newFixture() *fixture {
	f := &fixture{
		storage: newMemStorage(),
		finnhub: &mockFinnhub{},
		yahoo:   &mockYahoo{},
		av:      &mockAlphaVantage{},
		queue:   &mockQueue{},
		config:  common.NewDefaultConfig(),
	}
	f.config.RateLimit.Finnhub.MaxRetries = 0
	f.config.RateLimit.AlphaVantage.MaxRetries = 0
	return f
}

// build constructs the service; call after adjusting the fixture.
func (f *fixture) build() *Service {
	store := cache.NewStore(
		cache.WithJitter(func() time.Duration { return 0 }),
		cache.WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
	)
	f.svc = NewService(f.storage, Clients{
		Finnhub:      f.finnhub,
		Yahoo:        f.yahoo,
		AlphaVantage: f.av,
	}, f.queue, store, common.NewSilentLogger(), f.config)
	return f.svc
}
