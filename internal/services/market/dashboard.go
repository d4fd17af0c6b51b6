package market

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/stockdash/internal/models"
)

// GetDashboard builds one entry per symbol, in input order, running up to
// the configured number of symbols at once. An empty symbols list uses the
// configured defaults. Per-symbol problems are reported in the entry.
func (s *Service) GetDashboard(ctx context.Context, symbols []string) ([]models.DashboardEntry, error) {
	if len(symbols) == 0 {
		symbols = s.config.Dashboard.Symbols
	}

	entries := make([]models.DashboardEntry, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Dashboard.GetConcurrency())

	for i, symbol := range symbols {
		g.Go(func() error {
			entries[i] = s.dashboardEntry(gctx, strings.ToUpper(symbol))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Service) dashboardEntry(ctx context.Context, symbol string) (entry models.DashboardEntry) {
	entry.Symbol = symbol

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("symbol", symbol).Str("panic", fmt.Sprintf("%v", r)).Msg("Recovered from panic building dashboard entry")
			entry.Errors = append(entry.Errors, fmt.Sprintf("internal error: %v", r))
		}
	}()

	financials := s.GetFinancials(ctx, symbol, models.ReportQuarterly)
	entry.Financials = financials.Data
	entry.FinancialsSource = string(financials.Source)
	if financials.Error != "" {
		entry.Errors = append(entry.Errors, "financials: "+financials.Error)
	}

	earnings := s.GetEarnings(ctx, symbol)
	entry.Earnings = earnings.Data
	entry.EarningsSource = string(earnings.Source)
	if earnings.Error != "" {
		entry.Errors = append(entry.Errors, "earnings: "+earnings.Error)
	}

	news := s.GetNews(ctx, symbol, defaultNewsDays)
	entry.News = news.Data
	entry.NewsSource = string(news.Source)
	entry.AverageSentiment = averageSentiment(news.Data)
	if news.Error != "" {
		entry.Errors = append(entry.Errors, "news: "+news.Error)
	}

	return entry
}

// averageSentiment is the mean headline sentiment of the newest articles.
func averageSentiment(articles []models.NewsArticle) *float64 {
	if len(articles) > sentimentSample {
		articles = articles[:sentimentSample]
	}
	if len(articles) == 0 {
		return nil
	}

	var sum float64
	for _, a := range articles {
		sum += a.Sentiment
	}
	avg := sum / float64(len(articles))
	return &avg
}
