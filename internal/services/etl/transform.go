package etl

import (
	"math"
	"strings"
	"time"

	"github.com/bobmcallan/stockdash/internal/models"
)

// Concept name fragments matched case-insensitively against income
// statement line items.
var (
	revenueConcepts   = []string{"Revenue", "totalRevenue", "revenues"}
	netIncomeConcepts = []string{"Net Income", "netIncome", "net_income"}
	epsConcepts       = []string{"EPS", "earningsPerShare", "eps"}
)

// ExtractMetric returns the value of the first line item whose concept
// contains any of keys, ignoring case.
func ExtractMetric(items []models.LineItem, keys []string) *float64 {
	for _, item := range items {
		concept := strings.ToLower(item.Concept)
		for _, key := range keys {
			if strings.Contains(concept, strings.ToLower(key)) {
				v := item.Value
				return &v
			}
		}
	}
	return nil
}

// TransformFinancials shapes reported filings as FinancialReport records.
// Annual reports carry quarter 0.
func TransformFinancials(symbol, freq string, filings []models.ReportedFiling) []models.FinancialReport {
	reportType := models.ReportTypeFor(freq)
	reports := make([]models.FinancialReport, 0, len(filings))

	for _, f := range filings {
		r := models.FinancialReport{
			Symbol:     symbol,
			Year:       f.Year,
			ReportType: reportType,
			Report:     f.Report,
			Revenue:    ExtractMetric(f.Report.IncomeStatement, revenueConcepts),
			NetIncome:  ExtractMetric(f.Report.IncomeStatement, netIncomeConcepts),
			EPS:        ExtractMetric(f.Report.IncomeStatement, epsConcepts),
		}
		if reportType == models.ReportQuarterly {
			r.Quarter = f.Quarter
		}
		if filed, ok := parseDate(f.FiledDate); ok {
			r.FilingDate = &filed
		}
		reports = append(reports, r)
	}
	return reports
}

// TransformEarnings derives quarter, surprise and beat fields. Records
// whose period cannot be parsed are dropped.
func TransformEarnings(symbol string, raw []models.EarningsSurprise) []models.EarningsRecord {
	records := make([]models.EarningsRecord, 0, len(raw))

	for _, e := range raw {
		period, ok := parseDate(e.Period)
		if !ok {
			continue
		}

		r := models.EarningsRecord{
			Symbol:          symbol,
			Period:          period,
			Year:            period.Year(),
			Quarter:         (int(period.Month())-1)/3 + 1,
			EPSActual:       e.Actual,
			EPSEstimate:     e.Estimate,
			RevenueActual:   e.RevenueActual,
			RevenueEstimate: e.RevenueEstimate,
		}

		if e.Actual != nil && e.Estimate != nil {
			r.EPSSurprise, r.EPSSurprisePct = surprise(*e.Actual, *e.Estimate)
			beat := *e.Actual > *e.Estimate
			r.IsBeat = &beat
		}

		if e.RevenueActual != nil && e.RevenueEstimate != nil {
			r.RevenueSurprise, r.RevenueSurprisePct = surprise(*e.RevenueActual, *e.RevenueEstimate)
			if r.IsBeat == nil {
				beat := *e.RevenueActual > *e.RevenueEstimate
				r.IsBeat = &beat
			}
		}

		records = append(records, r)
	}
	return records
}

// surprise returns actual-estimate and its percentage of |estimate|.
// The percentage is nil when the estimate is zero.
func surprise(actual, estimate float64) (diff, pct *float64) {
	d := actual - estimate
	diff = &d
	if estimate != 0 {
		p := d / math.Abs(estimate) * 100
		pct = &p
	}
	return diff, pct
}

// TransformNews shapes company news as NewsArticle records scored by
// headline sentiment, dropping articles without a URL.
func TransformNews(symbol string, raw []models.CompanyNews) []models.NewsArticle {
	articles := make([]models.NewsArticle, 0, len(raw))

	for _, n := range raw {
		if n.URL == "" {
			continue
		}
		articles = append(articles, models.NewsArticle{
			Symbol:    symbol,
			Headline:  n.Headline,
			Summary:   n.Summary,
			URL:       n.URL,
			Source:    n.Source,
			Category:  n.Category,
			Related:   n.Related,
			ImageURL:  n.Image,
			Published: time.Unix(n.Datetime, 0).UTC(),
			Sentiment: HeadlineSentiment(n.Headline),
		})
	}
	return articles
}

// parseDate reads the YYYY-MM-DD prefix of s, which also accepts
// Finnhub's "2024-02-02 00:00:00" timestamps.
func parseDate(s string) (time.Time, bool) {
	if len(s) < len("2006-01-02") {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
