package surrealdb

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stockdash/internal/models"
)

// ============================================================================
// 1. Symbol as part of the record ID: hostile symbols
// ============================================================================

func TestStress_PriceStore_HostileSymbols(t *testing.T) {
	m := testManager(t)
	store := m.PriceStore()
	ctx := context.Background()

	// Record IDs are built with NewRecordID, so punctuation must round-trip
	// without leaking into other symbols.
	symbols := []string{
		"AAPL",
		"BRK.B",
		"BHP.AX",
		"'; REMOVE TABLE stock_price; --",
		"stock_price:injected",
		"BHP`AX",
		"⟨BHP⟩",
	}

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, sym := range symbols {
		require.NoError(t, store.SavePrices(ctx, []models.PriceBar{{Symbol: sym, Date: day, Close: float64(100 + i)}}), sym)
	}

	for i, sym := range symbols {
		bars, err := store.GetPrices(ctx, sym, 10)
		require.NoError(t, err, sym)
		require.Len(t, bars, 1, sym)
		assert.Equal(t, float64(100+i), bars[0].Close, sym)
	}
}

// ============================================================================
// 2. Concurrent upserts of the same natural key
// ============================================================================

func TestStress_FinancialStore_ConcurrentUpsertSameKey(t *testing.T) {
	m := testManager(t)
	store := m.FinancialStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.SaveReports(ctx, []models.FinancialReport{newTestReport("SBUX", "quarterly", 2024, 1, float64(i))})
		}(i)
	}
	wg.Wait()
	close(errs)

	// Conflicting writers may exhaust their retries; at least one must land
	saved := 0
	for err := range errs {
		if err == nil {
			saved++
		}
	}
	require.Positive(t, saved)

	got, err := store.GetReports(ctx, "SBUX", "quarterly", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1, "concurrent saves of one key must leave one record")
}

// ============================================================================
// 3. Volume: limit is honoured on large tables
// ============================================================================

func TestStress_NewsStore_LimitOnLargeTable(t *testing.T) {
	m := testManager(t)
	store := m.NewsStore()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	articles := make([]models.NewsArticle, 0, 200)
	for i := 0; i < 200; i++ {
		articles = append(articles, models.NewsArticle{
			Symbol:    "AAPL",
			Headline:  fmt.Sprintf("article %d", i),
			URL:       fmt.Sprintf("https://example.com/%d", i),
			Published: base.Add(time.Duration(i) * time.Hour),
		})
	}
	require.NoError(t, store.SaveNews(ctx, articles))

	got, err := store.GetNews(ctx, "AAPL", 30)
	require.NoError(t, err)
	require.Len(t, got, 30)
	assert.Equal(t, "article 199", got[0].Headline)
}

// ============================================================================
// 4. Cancelled context stops the upsert retries
// ============================================================================

func TestStress_Upsert_CancelledContext(t *testing.T) {
	m := testManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.EarningsStore().SaveEarnings(ctx, []models.EarningsRecord{
		{Symbol: "AAPL", Period: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
	})
	assert.Error(t, err)
}
