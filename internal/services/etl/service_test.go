package etl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stockdash/internal/common"
	"github.com/bobmcallan/stockdash/internal/interfaces"
	"github.com/bobmcallan/stockdash/internal/models"
)

// --- mocks ---

type mockFinnhub struct {
	filings  map[string][]models.ReportedFiling // freq -> filings
	filingsE map[string]error
	earnings []models.EarningsSurprise
	news     []models.CompanyNews
	err      error

	newsFrom, newsTo time.Time
}

func (m *mockFinnhub) GetFinancialsReported(_ context.Context, _ string, freq string) ([]models.ReportedFiling, error) {
	if err := m.filingsE[freq]; err != nil {
		return nil, err
	}
	return m.filings[freq], m.err
}

func (m *mockFinnhub) GetEarnings(context.Context, string) ([]models.EarningsSurprise, error) {
	return m.earnings, m.err
}

func (m *mockFinnhub) GetCompanyNews(_ context.Context, _ string, from, to time.Time) ([]models.CompanyNews, error) {
	m.newsFrom, m.newsTo = from, to
	return m.news, m.err
}

type mockStorage struct {
	mu         sync.Mutex
	financials []models.FinancialReport
	earnings   []models.EarningsRecord
	news       []models.NewsArticle
	saveErr    error
}

func (m *mockStorage) FinancialStore() interfaces.FinancialStore { return mockFinancials{m} }
func (m *mockStorage) EarningsStore() interfaces.EarningsStore   { return mockEarnings{m} }
func (m *mockStorage) NewsStore() interfaces.NewsStore           { return mockNews{m} }
func (m *mockStorage) PriceStore() interfaces.PriceStore         { return nil }
func (m *mockStorage) PurgeAll(context.Context) (map[string]int, error) {
	return nil, nil
}
func (m *mockStorage) Close() error { return nil }

type mockFinancials struct{ m *mockStorage }

func (s mockFinancials) GetReports(context.Context, string, string, int) ([]models.FinancialReport, error) {
	return nil, nil
}
func (s mockFinancials) SaveReports(_ context.Context, reports []models.FinancialReport) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.saveErr != nil {
		return s.m.saveErr
	}
	s.m.financials = append(s.m.financials, reports...)
	return nil
}

type mockEarnings struct{ m *mockStorage }

func (s mockEarnings) GetEarnings(context.Context, string, int) ([]models.EarningsRecord, error) {
	return nil, nil
}
func (s mockEarnings) SaveEarnings(_ context.Context, records []models.EarningsRecord) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.saveErr != nil {
		return s.m.saveErr
	}
	s.m.earnings = append(s.m.earnings, records...)
	return nil
}

type mockNews struct{ m *mockStorage }

func (s mockNews) GetNews(context.Context, string, int) ([]models.NewsArticle, error) {
	return nil, nil
}
func (s mockNews) SaveNews(_ context.Context, articles []models.NewsArticle) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.saveErr != nil {
		return s.m.saveErr
	}
	s.m.news = append(s.m.news, articles...)
	return nil
}

func newTestService(fh *mockFinnhub, st *mockStorage) *Service {
	return NewService(fh, st, common.NewSilentLogger())
}

// --- tests ---

func TestRefreshFinancials_LoadsBothFrequencies(t *testing.T) {
	fh := &mockFinnhub{filings: map[string][]models.ReportedFiling{
		"quarterly": {{Year: 2024, Quarter: 1}, {Year: 2023, Quarter: 4}},
		"annual":    {{Year: 2023}},
	}}
	st := &mockStorage{}

	require.NoError(t, newTestService(fh, st).RefreshFinancials(context.Background(), "SBUX"))

	require.Len(t, st.financials, 3)
	assert.Equal(t, models.ReportQuarterly, st.financials[0].ReportType)
	assert.Equal(t, models.ReportAnnual, st.financials[2].ReportType)
}

func TestRefreshFinancials_OneFrequencyFails(t *testing.T) {
	fh := &mockFinnhub{
		filings:  map[string][]models.ReportedFiling{"quarterly": {{Year: 2024, Quarter: 1}}},
		filingsE: map[string]error{"annual": errors.New("403 forbidden")},
	}
	st := &mockStorage{}

	err := newTestService(fh, st).RefreshFinancials(context.Background(), "SBUX")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "annual")
	assert.Len(t, st.financials, 1, "quarterly reports still loaded")
}

func TestRefreshEarnings(t *testing.T) {
	fh := &mockFinnhub{earnings: []models.EarningsSurprise{
		{Period: "2024-03-31", Actual: f64(0.68), Estimate: f64(0.80)},
		{Period: ""},
	}}
	st := &mockStorage{}

	require.NoError(t, newTestService(fh, st).RefreshEarnings(context.Background(), "SBUX"))
	require.Len(t, st.earnings, 1)
	assert.Equal(t, "SBUX", st.earnings[0].Symbol)
}

func TestRefreshEarnings_ExtractError(t *testing.T) {
	upstream := errors.New("connection reset")
	fh := &mockFinnhub{err: upstream}
	st := &mockStorage{}

	err := newTestService(fh, st).RefreshEarnings(context.Background(), "SBUX")
	assert.ErrorIs(t, err, upstream)
	assert.Empty(t, st.earnings)
}

func TestRefreshEarnings_LoadError(t *testing.T) {
	fh := &mockFinnhub{earnings: []models.EarningsSurprise{{Period: "2024-03-31"}}}
	st := &mockStorage{saveErr: errors.New("db down")}

	err := newTestService(fh, st).RefreshEarnings(context.Background(), "SBUX")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load earnings")
}

func TestRefreshNews_Window(t *testing.T) {
	now := time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)
	fh := &mockFinnhub{news: []models.CompanyNews{
		{Headline: "a", URL: "https://example.com/a", Datetime: now.Unix()},
		{Headline: "b"},
	}}
	st := &mockStorage{}

	svc := newTestService(fh, st)
	svc.now = func() time.Time { return now }
	svc.SetNewsDays(7)

	require.NoError(t, svc.RefreshNews(context.Background(), "AAPL"))
	assert.Equal(t, now, fh.newsTo)
	assert.Equal(t, now.AddDate(0, 0, -7), fh.newsFrom)
	require.Len(t, st.news, 1)
}

func TestRefreshNews_DefaultWindow(t *testing.T) {
	fh := &mockFinnhub{}
	svc := newTestService(fh, &mockStorage{})
	svc.SetNewsDays(0)

	require.NoError(t, svc.RefreshNews(context.Background(), "AAPL"))
	assert.Equal(t, DefaultNewsDays*24*time.Hour, fh.newsTo.Sub(fh.newsFrom))
}
