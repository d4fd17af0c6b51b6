package market

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stockdash/internal/fallback"
	"github.com/bobmcallan/stockdash/internal/models"
)

func f64(v float64) *float64 { return &v }

func quarterlyReport(symbol string, year, quarter int) models.FinancialReport {
	return models.FinancialReport{Symbol: symbol, Year: year, Quarter: quarter, ReportType: models.ReportQuarterly, Revenue: f64(1e9)}
}

func TestGetFinancials_PrimaryStoreNoNetwork(t *testing.T) {
	f := newFixture()
	f.storage.financials["AAPL:quarterly"] = []models.FinancialReport{
		quarterlyReport("AAPL", 2024, 1),
		quarterlyReport("AAPL", 2023, 4),
	}
	svc := f.build()

	result := svc.GetFinancials(context.Background(), "AAPL", "quarterly")
	assert.Equal(t, fallback.SourcePrimaryStore, result.Source)
	assert.Len(t, result.Data, 2)
	assert.Empty(t, result.Error)

	assert.Equal(t, 0, f.yahoo.count())
	assert.Equal(t, 0, f.finnhub.count())
	assert.Empty(t, f.queue.submitted())
}

func TestGetFinancials_FailedRefreshFallsToSecondary(t *testing.T) {
	f := newFixture()
	f.queue.run = func(string, string) error { return errRefreshFailed }
	f.yahoo.financials = &models.SecondaryFinancials{
		Quarterly: []models.FinancialReport{{Symbol: "MSFT", Year: 2024, Quarter: 1, ReportType: models.ReportQuarterly, Source: "yahoo_finance"}},
	}
	svc := f.build()

	result := svc.GetFinancials(context.Background(), "MSFT", "quarterly")
	assert.Equal(t, fallback.SourceSecondaryAPI, result.Source)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "yahoo_finance", result.Data[0].Source)

	assert.Equal(t, []string{"refresh_financials:MSFT"}, f.queue.submitted())
	assert.Equal(t, 0, f.finnhub.count(), "legacy tier must not be reached")
}

func TestGetFinancials_RefreshPopulatesStore(t *testing.T) {
	f := newFixture()
	f.queue.run = func(_, ticker string) error {
		return f.storage.FinancialStore().SaveReports(context.Background(), []models.FinancialReport{quarterlyReport(ticker, 2024, 1)})
	}
	svc := f.build()

	result := svc.GetFinancials(context.Background(), "IBM", "quarterly")
	assert.Equal(t, fallback.SourceRefreshedStore, result.Source)
	assert.Len(t, result.Data, 1)
	assert.Equal(t, 0, f.yahoo.count())
}

func TestGetFinancials_SecondaryDowngradesToAnnual(t *testing.T) {
	f := newFixture()
	f.yahoo.financials = &models.SecondaryFinancials{
		Annual: []models.FinancialReport{{Symbol: "TSLA", Year: 2023, ReportType: models.ReportAnnual}},
	}
	svc := f.build()

	result := svc.GetFinancials(context.Background(), "TSLA", "quarterly")
	assert.Equal(t, fallback.SourceSecondaryAPI, result.Source)
	require.Len(t, result.Data, 1)
	assert.Equal(t, models.ReportAnnual, result.Data[0].ReportType)
}

func TestGetFinancials_DowngradePrefersStoredAnnual(t *testing.T) {
	f := newFixture()
	f.storage.financials["TSLA:annual"] = []models.FinancialReport{{Symbol: "TSLA", Year: 2023, ReportType: models.ReportAnnual, Source: "finnhub"}}
	f.yahoo.financials = &models.SecondaryFinancials{
		Annual: []models.FinancialReport{{Symbol: "TSLA", Year: 2022, ReportType: models.ReportAnnual, Source: "yahoo_finance"}},
	}
	svc := f.build()

	result := svc.GetFinancials(context.Background(), "TSLA", "quarterly")
	assert.Equal(t, fallback.SourceSecondaryAPI, result.Source)
	require.Len(t, result.Data, 1)
	assert.Equal(t, 2023, result.Data[0].Year)
	assert.Equal(t, "finnhub", result.Data[0].Source)
}

func TestGetFinancials_DowngradeSurvivesSecondaryError(t *testing.T) {
	f := newFixture()
	f.storage.financials["SBUX:annual"] = []models.FinancialReport{{Symbol: "SBUX", Year: 2023, ReportType: models.ReportAnnual}}
	f.yahoo.err = errors.New("yahoo down")
	svc := f.build()

	result := svc.GetFinancials(context.Background(), "SBUX", "quarterly")
	assert.Equal(t, fallback.SourceSecondaryAPI, result.Source)
	require.Len(t, result.Data, 1)
	assert.Equal(t, models.ReportAnnual, result.Data[0].ReportType)
}

func TestGetFinancials_StaticTableForSBUX(t *testing.T) {
	f := newFixture()
	f.yahoo.err = errors.New("yahoo down")
	svc := f.build()

	result := svc.GetFinancials(context.Background(), "SBUX", "quarterly")
	assert.Equal(t, fallback.SourceStaticFallback, result.Source)
	require.Len(t, result.Data, 4)
	assert.Equal(t, 2024, result.Data[0].Year)
	assert.Equal(t, 1, result.Data[0].Quarter)
	assert.Equal(t, 9.0e9, *result.Data[0].Revenue)
	assert.Equal(t, StaticSource, result.Data[0].Source)
	assert.Equal(t, 0, f.finnhub.count())
}

func TestGetFinancials_LegacyLastResort(t *testing.T) {
	f := newFixture()
	f.finnhub.filings = []models.ReportedFiling{{Year: 2024, Quarter: 2, FiledDate: "2024-07-30"}}
	svc := f.build()

	result := svc.GetFinancials(context.Background(), "NVDA", "quarterly")
	assert.Equal(t, fallback.SourceLegacyAPI, result.Source)
	require.Len(t, result.Data, 1)
	assert.Equal(t, LegacySource, result.Data[0].Source)
	assert.Equal(t, 1, f.finnhub.count())
}

func TestGetFinancials_LegacyErrorIsReported(t *testing.T) {
	f := newFixture()
	f.finnhub.err = errors.New("finnhub 429")
	svc := f.build()

	result := svc.GetFinancials(context.Background(), "NVDA", "annual")
	assert.Equal(t, fallback.SourceLegacyAPI, result.Source)
	assert.Empty(t, result.Data)
	assert.Equal(t, "finnhub 429", result.Error)
}

func TestGetFinancials_ResultIsCached(t *testing.T) {
	f := newFixture()
	f.storage.financials["AAPL:quarterly"] = []models.FinancialReport{quarterlyReport("AAPL", 2024, 1)}
	f.storage.financials["AAPL:annual"] = []models.FinancialReport{{Symbol: "AAPL", Year: 2023, ReportType: models.ReportAnnual}}
	svc := f.build()
	ctx := context.Background()

	svc.GetFinancials(ctx, "AAPL", "quarterly")
	svc.GetFinancials(ctx, "AAPL", "quarterly")
	assert.Equal(t, 1, f.storage.readCount())
	assert.Equal(t, 1, svc.CacheStats().EntryCount)

	annual := svc.GetFinancials(ctx, "AAPL", "annual")
	assert.Equal(t, models.ReportAnnual, annual.Data[0].ReportType)
	assert.Equal(t, 2, f.storage.readCount(), "a different frequency is a different key")
	assert.Equal(t, 2, svc.CacheStats().EntryCount)

	svc.ClearCache()
	assert.Equal(t, 0, svc.CacheStats().EntryCount)
	svc.GetFinancials(ctx, "AAPL", "quarterly")
	assert.Equal(t, 3, f.storage.readCount())
}

func TestGetFinancials_CancelledRequestNotCached(t *testing.T) {
	f := newFixture()
	f.finnhub.filings = []models.ReportedFiling{{Year: 2024, Quarter: 2}}
	svc := f.build()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := svc.GetFinancials(ctx, "NVDA", "quarterly")
	assert.Empty(t, result.Data)
	assert.NotEmpty(t, result.Error)

	result = svc.GetFinancials(context.Background(), "NVDA", "quarterly")
	assert.Equal(t, fallback.SourceLegacyAPI, result.Source)
	assert.Len(t, result.Data, 1)
}

func TestGetEarnings_SecondaryThenStatic(t *testing.T) {
	f := newFixture()
	f.yahoo.earnings = []models.EarningsRecord{{Symbol: "AAPL", Period: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), EPSActual: f64(1.53)}}
	svc := f.build()
	ctx := context.Background()

	result := svc.GetEarnings(ctx, "AAPL")
	assert.Equal(t, fallback.SourceSecondaryAPI, result.Source)
	assert.Len(t, result.Data, 1)

	f.yahoo.earnings = nil
	sbux := svc.GetEarnings(ctx, "SBUX")
	assert.Equal(t, fallback.SourceStaticFallback, sbux.Source)
	require.Len(t, sbux.Data, 2)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), sbux.Data[0].Period)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), sbux.Data[1].Period)
	require.NotNil(t, sbux.Data[0].IsBeat)
	assert.True(t, *sbux.Data[0].IsBeat)
}

func TestGetEarnings_LegacyTransformsRecords(t *testing.T) {
	f := newFixture()
	f.finnhub.earnings = []models.EarningsSurprise{{Period: "2024-03-31", Actual: f64(2.0), Estimate: f64(1.6)}}
	svc := f.build()

	result := svc.GetEarnings(context.Background(), "META")
	assert.Equal(t, fallback.SourceLegacyAPI, result.Source)
	require.Len(t, result.Data, 1)
	require.NotNil(t, result.Data[0].EPSSurprisePct)
	assert.InDelta(t, 25.0, *result.Data[0].EPSSurprisePct, 1e-9)
}

func TestGetNews_SkipsToLegacy(t *testing.T) {
	f := newFixture()
	f.finnhub.news = []models.CompanyNews{{Headline: "x", URL: "https://example.com/x", Datetime: 1709300000}}
	svc := f.build()

	result := svc.GetNews(context.Background(), "AMZN", 0)
	assert.Equal(t, fallback.SourceLegacyAPI, result.Source)
	assert.Len(t, result.Data, 1)
	assert.Equal(t, 0, f.yahoo.count(), "news has no secondary source")
	assert.Equal(t, []string{"refresh_news:AMZN"}, f.queue.submitted())
}

func TestGetNews_StoreLimitedByDays(t *testing.T) {
	f := newFixture()
	for i := 0; i < 10; i++ {
		f.storage.news["AMZN"] = append(f.storage.news["AMZN"], models.NewsArticle{Symbol: "AMZN", URL: fmt.Sprintf("https://example.com/%d", i)})
	}
	svc := f.build()

	result := svc.GetNews(context.Background(), "AMZN", 3)
	assert.Equal(t, fallback.SourcePrimaryStore, result.Source)
	assert.Len(t, result.Data, 3)
}

func TestGetNews_NoDataAnywhere(t *testing.T) {
	f := newFixture()
	svc := f.build()

	result := svc.GetNews(context.Background(), "ZZZZ", 30)
	assert.Equal(t, fallback.SourceLegacyAPI, result.Source)
	assert.Empty(t, result.Data)
	assert.Equal(t, "no news data available for ZZZZ", result.Error)
}

func TestNewService_WithoutQueueSkipsRefresh(t *testing.T) {
	f := newFixture()
	f.yahoo.financials = &models.SecondaryFinancials{Quarterly: []models.FinancialReport{quarterlyReport("AMD", 2024, 1)}}

	svc := NewService(f.storage, Clients{Yahoo: f.yahoo}, nil, nil, nil, f.config)
	result := svc.GetFinancials(context.Background(), "AMD", "quarterly")
	assert.Equal(t, fallback.SourceSecondaryAPI, result.Source)
}
