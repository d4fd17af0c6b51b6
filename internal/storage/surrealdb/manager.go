// Package surrealdb implements the market data stores on SurrealDB.
// Every table is keyed by the record's natural key, so saving the same
// record twice is an idempotent upsert.
package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/stockdash/internal/common"
	"github.com/bobmcallan/stockdash/internal/interfaces"
)

// Table names
const (
	tableFinancials = "financial_report"
	tableEarnings   = "earnings"
	tableNews       = "news_article"
	tablePrices     = "stock_price"
)

var allTables = []string{tableFinancials, tableEarnings, tableNews, tablePrices}

var indexes = []string{
	"DEFINE INDEX IF NOT EXISTS idx_news_symbol ON TABLE news_article FIELDS symbol",
	"DEFINE INDEX IF NOT EXISTS idx_news_sentiment ON TABLE news_article FIELDS sentiment",
}

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	financialStore *FinancialStore
	earningsStore  *EarningsStore
	newsStore      *NewsStore
	priceStore     *PriceStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	m, err := newManager(ctx, db, logger)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

// newManager defines the tables on an open connection and builds the stores.
func newManager(ctx context.Context, db *surrealdb.DB, logger *common.Logger) (*Manager, error) {
	// SurrealDB v3 errors on querying non-existent tables
	for _, table := range allTables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}
	for _, sql := range indexes {
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define index: %w", err)
		}
	}

	return &Manager{
		db:             db,
		logger:         logger,
		financialStore: NewFinancialStore(db, logger),
		earningsStore:  NewEarningsStore(db, logger),
		newsStore:      NewNewsStore(db, logger),
		priceStore:     NewPriceStore(db, logger),
	}, nil
}

func (m *Manager) FinancialStore() interfaces.FinancialStore {
	return m.financialStore
}

func (m *Manager) EarningsStore() interfaces.EarningsStore {
	return m.earningsStore
}

func (m *Manager) NewsStore() interfaces.NewsStore {
	return m.newsStore
}

func (m *Manager) PriceStore() interfaces.PriceStore {
	return m.priceStore
}

// PurgeAll deletes every record of every table.
func (m *Manager) PurgeAll(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)

	for _, table := range allTables {
		results, err := surrealdb.Query[[]map[string]any](ctx, m.db, fmt.Sprintf("DELETE %s RETURN BEFORE", table), nil)
		if err != nil {
			return counts, fmt.Errorf("failed to purge %s: %w", table, err)
		}
		if results != nil && len(*results) > 0 {
			counts[table] = len((*results)[0].Result)
		}
	}

	m.logger.Info().
		Int("financials", counts[tableFinancials]).
		Int("earnings", counts[tableEarnings]).
		Int("news", counts[tableNews]).
		Int("prices", counts[tablePrices]).
		Msg("Market data purged")

	return counts, nil
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
