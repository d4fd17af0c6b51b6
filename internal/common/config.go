// Package common provides shared utilities for stockdash
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for stockdash
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Clients     ClientsConfig   `toml:"clients"`
	Cache       CacheConfig     `toml:"cache"`
	RateLimit   RateLimitConfig `toml:"ratelimit"`
	Fallback    FallbackConfig  `toml:"fallback"`
	Dashboard   DashboardConfig `toml:"dashboard"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	ReadTimeout  string `toml:"read_timeout"`
	WriteTimeout string `toml:"write_timeout"` // unset: sized to a full dashboard batch
	IdleTimeout  string `toml:"idle_timeout"`
}

// GetReadTimeout returns the request read timeout, defaulting to 15s.
func (c *ServerConfig) GetReadTimeout() time.Duration {
	return parseDuration(c.ReadTimeout, 15*time.Second)
}

// GetWriteTimeout returns the configured response write timeout, or 0 when unset.
func (c *ServerConfig) GetWriteTimeout() time.Duration {
	return parseDuration(c.WriteTimeout, 0)
}

// GetIdleTimeout returns the keep-alive idle timeout, defaulting to 60s.
func (c *ServerConfig) GetIdleTimeout() time.Duration {
	return parseDuration(c.IdleTimeout, 60*time.Second)
}

// StorageConfig holds SurrealDB connection settings.
type StorageConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Finnhub      APIClientConfig `toml:"finnhub"`
	Yahoo        APIClientConfig `toml:"yahoo"`
	AlphaVantage APIClientConfig `toml:"alphavantage"`
}

// APIClientConfig holds the settings shared by every upstream HTTP client.
// RateLimit is requests per second; the per-minute quota lives in [ratelimit].
type APIClientConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *APIClientConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// CacheConfig holds adaptive TTL settings per cached operation.
type CacheConfig struct {
	Financials CacheTTLConfig `toml:"financials"`
	Earnings   CacheTTLConfig `toml:"earnings"`
	News       CacheTTLConfig `toml:"news"`
	Prices     CacheTTLConfig `toml:"prices"`
	Yahoo      string         `toml:"yahoo_ttl"` // fixed TTL for the secondary source
}

// GetYahooTTL returns the fixed TTL applied to secondary-source lookups.
func (c *CacheConfig) GetYahooTTL() time.Duration {
	return parseDuration(c.Yahoo, 12*time.Hour)
}

// CacheTTLConfig is the base/max/error TTL triple of one cached operation.
type CacheTTLConfig struct {
	BaseTTL  string `toml:"base_ttl"`
	MaxTTL   string `toml:"max_ttl"`
	ErrorTTL string `toml:"error_ttl"`
}

// GetBaseTTL returns the TTL used for results of unknown quality.
func (c *CacheTTLConfig) GetBaseTTL() time.Duration {
	return parseDuration(c.BaseTTL, time.Hour)
}

// GetMaxTTL returns the TTL used for non-empty results.
func (c *CacheTTLConfig) GetMaxTTL() time.Duration {
	return parseDuration(c.MaxTTL, 24*time.Hour)
}

// GetErrorTTL returns the TTL used for cached failures.
func (c *CacheTTLConfig) GetErrorTTL() time.Duration {
	return parseDuration(c.ErrorTTL, 5*time.Minute)
}

// RateLimitConfig holds per-minute quotas for direct upstream calls.
type RateLimitConfig struct {
	Finnhub      QuotaConfig `toml:"finnhub"`
	AlphaVantage QuotaConfig `toml:"alphavantage"`
}

// QuotaConfig configures one rate-limited operation.
type QuotaConfig struct {
	CallsPerMinute int    `toml:"calls_per_minute"`
	RetryAfter     string `toml:"retry_after"` // base backoff
	MaxRetries     int    `toml:"max_retries"`
}

// GetRetryAfter parses and returns the base backoff duration
func (c *QuotaConfig) GetRetryAfter() time.Duration {
	return parseDuration(c.RetryAfter, 60*time.Second)
}

// FallbackConfig holds the refresh worker pool and per-entity refresh timeouts.
type FallbackConfig struct {
	Workers              int    `toml:"workers"`
	QueueSize            int    `toml:"queue_size"`
	FinancialsETLTimeout string `toml:"financials_etl_timeout"`
	EarningsETLTimeout   string `toml:"earnings_etl_timeout"`
	NewsETLTimeout       string `toml:"news_etl_timeout"`
}

// GetWorkers returns the refresh pool size, defaulting to 4.
func (c *FallbackConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns the refresh queue capacity, defaulting to 64.
func (c *FallbackConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 64
	}
	return c.QueueSize
}

// GetFinancialsETLTimeout returns the bounded wait on a financials refresh.
func (c *FallbackConfig) GetFinancialsETLTimeout() time.Duration {
	return parseDuration(c.FinancialsETLTimeout, 20*time.Second)
}

// GetEarningsETLTimeout returns the bounded wait on an earnings refresh.
func (c *FallbackConfig) GetEarningsETLTimeout() time.Duration {
	return parseDuration(c.EarningsETLTimeout, 15*time.Second)
}

// GetNewsETLTimeout returns the bounded wait on a news refresh.
func (c *FallbackConfig) GetNewsETLTimeout() time.Duration {
	return parseDuration(c.NewsETLTimeout, 10*time.Second)
}

// DashboardConfig holds the default symbol set and aggregation fan-out.
type DashboardConfig struct {
	Symbols     []string `toml:"symbols"`
	Concurrency int      `toml:"concurrency"`
}

// GetConcurrency returns the per-symbol aggregation limit, defaulting to 4.
func (c *DashboardConfig) GetConcurrency() int {
	if c.Concurrency <= 0 {
		return 4
	}
	return c.Concurrency
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Address:   "ws://localhost:8000/rpc",
			Namespace: "stockdash",
			Database:  "market",
			Username:  "root",
			Password:  "root",
		},
		Clients: ClientsConfig{
			Finnhub: APIClientConfig{
				BaseURL:   "https://finnhub.io/api/v1",
				RateLimit: 5,
				Timeout:   "10s",
			},
			Yahoo: APIClientConfig{
				BaseURL:   "https://query2.finance.yahoo.com",
				RateLimit: 2,
				Timeout:   "15s",
			},
			AlphaVantage: APIClientConfig{
				BaseURL:   "https://www.alphavantage.co",
				RateLimit: 1,
				Timeout:   "30s",
			},
		},
		Cache: CacheConfig{
			Financials: CacheTTLConfig{BaseTTL: "6h", MaxTTL: "12h", ErrorTTL: "5m"},
			Earnings:   CacheTTLConfig{BaseTTL: "12h", MaxTTL: "24h", ErrorTTL: "5m"},
			News:       CacheTTLConfig{BaseTTL: "2h", MaxTTL: "6h", ErrorTTL: "5m"},
			Prices:     CacheTTLConfig{BaseTTL: "1h", MaxTTL: "24h", ErrorTTL: "5m"},
			Yahoo:      "12h",
		},
		RateLimit: RateLimitConfig{
			Finnhub:      QuotaConfig{CallsPerMinute: 10, RetryAfter: "60s", MaxRetries: 3},
			AlphaVantage: QuotaConfig{CallsPerMinute: 5, RetryAfter: "60s", MaxRetries: 3},
		},
		Fallback: FallbackConfig{
			Workers:              4,
			QueueSize:            64,
			FinancialsETLTimeout: "20s",
			EarningsETLTimeout:   "15s",
			NewsETLTimeout:       "10s",
		},
		Dashboard: DashboardConfig{
			Symbols:     []string{"AAPL", "MSFT", "SBUX"},
			Concurrency: 4,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Outputs:  []string{"console"},
			FilePath: "./logs/stockdash.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCKDASH_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("STOCKDASH_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("STOCKDASH_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("STOCKDASH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if addr := os.Getenv("STOCKDASH_STORAGE_ADDRESS"); addr != "" {
		config.Storage.Address = addr
	}

	if v := os.Getenv("STOCKDASH_FINNHUB_API_KEY"); v != "" {
		config.Clients.Finnhub.APIKey = v
	}
	if v := os.Getenv("STOCKDASH_ALPHAVANTAGE_API_KEY"); v != "" {
		config.Clients.AlphaVantage.APIKey = v
	}

	if v := os.Getenv("STOCKDASH_DASHBOARD_SYMBOLS"); v != "" {
		var symbols []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
		if len(symbols) > 0 {
			config.Dashboard.Symbols = symbols
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from the environment, falling back to the config value.
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"finnhub_api_key":      {"FINNHUB_API_KEY", "STOCKDASH_FINNHUB_API_KEY"},
		"alphavantage_api_key": {"ALPHA_VANTAGE_API_KEY", "STOCKDASH_ALPHAVANTAGE_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
