package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/stockdash/internal/cache"
	"github.com/bobmcallan/stockdash/internal/clients/alphavantage"
	"github.com/bobmcallan/stockdash/internal/clients/finnhub"
	"github.com/bobmcallan/stockdash/internal/clients/yahoo"
	"github.com/bobmcallan/stockdash/internal/common"
	"github.com/bobmcallan/stockdash/internal/interfaces"
	"github.com/bobmcallan/stockdash/internal/services/etl"
	"github.com/bobmcallan/stockdash/internal/services/jobmanager"
	"github.com/bobmcallan/stockdash/internal/services/market"
	"github.com/bobmcallan/stockdash/internal/storage/surrealdb"
)

// App holds all initialized services, clients, and storage.
// It is the shared core used by cmd/stockdash-server and the server tests.
type App struct {
	Config         *common.Config
	Logger         *common.Logger
	Storage        interfaces.StorageManager
	Cache          *cache.Store
	MarketService  interfaces.MarketService
	RefreshService interfaces.RefreshService
	JobManager     *jobmanager.JobManager
	StartupTime    time.Time

	warmCacheCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath checks the provided path, STOCKDASH_CONFIG, then the
// binary dir, then the development fallback.
func resolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("STOCKDASH_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "stockdash.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/stockdash.toml"
		}
	}
	return configPath
}

// NewApp loads configuration, connects to SurrealDB and initializes all
// services. configPath may be empty, in which case the default resolution
// logic is used.
func NewApp(configPath string) (*App, error) {
	config, err := common.LoadConfig(resolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(getBinaryDir(), config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return New(config, storageManager, logger), nil
}

// New wires clients and services onto an open storage manager and starts
// the refresh workers. A client whose API key cannot be resolved is left
// out, and the tiers it serves are skipped.
func New(config *common.Config, storageManager interfaces.StorageManager, logger *common.Logger) *App {
	startupStart := time.Now()

	if config == nil {
		config = common.NewDefaultConfig()
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	var clients market.Clients

	finnhubKey, err := common.ResolveAPIKey("finnhub_api_key", config.Clients.Finnhub.APIKey)
	if err != nil {
		logger.Warn().Msg("Finnhub API key not configured - refresh jobs and legacy lookups disabled")
	} else {
		clients.Finnhub = finnhub.NewClient(finnhubKey,
			finnhub.WithBaseURL(config.Clients.Finnhub.BaseURL),
			finnhub.WithLogger(logger),
			finnhub.WithRateLimit(config.Clients.Finnhub.RateLimit),
			finnhub.WithTimeout(config.Clients.Finnhub.GetTimeout()),
		)
	}

	clients.Yahoo = yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
		yahoo.WithLogger(logger),
		yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
		yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
	)

	avKey, err := common.ResolveAPIKey("alphavantage_api_key", config.Clients.AlphaVantage.APIKey)
	if err != nil {
		logger.Warn().Msg("Alpha Vantage API key not configured - live prices disabled")
	} else {
		clients.AlphaVantage = alphavantage.NewClient(avKey,
			alphavantage.WithBaseURL(config.Clients.AlphaVantage.BaseURL),
			alphavantage.WithLogger(logger),
			alphavantage.WithRateLimit(config.Clients.AlphaVantage.RateLimit),
			alphavantage.WithTimeout(config.Clients.AlphaVantage.GetTimeout()),
		)
	}

	store := cache.NewStore(cache.WithLogger(logger))

	a := &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Cache:       store,
		StartupTime: startupStart,
	}

	// The refresh tier needs Finnhub as its extract source
	var queue interfaces.RefreshQueue
	if clients.Finnhub != nil {
		refresh := etl.NewService(clients.Finnhub, storageManager, logger)
		a.RefreshService = refresh
		a.JobManager = jobmanager.NewJobManager(refresh, logger, config.Fallback)
		a.JobManager.Start()
		queue = a.JobManager
	}

	a.MarketService = market.NewService(storageManager, clients, queue, store, logger, config)

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a
}

// Close releases all resources held by the App.
// Shutdown order: cancel warm cache, stop refresh workers, close storage.
func (a *App) Close() {
	if a.warmCacheCancel != nil {
		a.warmCacheCancel()
		a.warmCacheCancel = nil
	}
	if a.JobManager != nil {
		a.JobManager.Stop()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
}

// StartWarmCache launches the background cache warming goroutine.
func (a *App) StartWarmCache() {
	warmCtx, warmCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	a.warmCacheCancel = warmCancel
	go func() {
		defer warmCancel()
		warmCache(warmCtx, a.MarketService, a.Config.Dashboard.Symbols, a.Logger)
	}()
}
