// Package finnhub provides a client for the Finnhub API
package finnhub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/stockdash/internal/common"
	"github.com/bobmcallan/stockdash/internal/models"
)

const (
	DefaultBaseURL   = "https://finnhub.io/api/v1"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the FinnhubClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL; an empty value keeps the default
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Finnhub client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Finnhub API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request and returns the raw body
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Str("symbol", params.Get("symbol")).Msg("Finnhub API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(bytes.TrimSpace(body)),
			Endpoint:   path,
		}
	}

	return body, nil
}

// GetFinancialsReported retrieves as-reported filings.
// The endpoint normally wraps filings in {"data": [...]}; a bare array is accepted too.
func (c *Client) GetFinancialsReported(ctx context.Context, symbol, freq string) ([]models.ReportedFiling, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("freq", models.ReportTypeFor(freq))

	body, err := c.get(ctx, "/stock/financials-reported", params)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var filings []models.ReportedFiling
		if err := json.Unmarshal(trimmed, &filings); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		c.logger.Warn().Str("symbol", symbol).Msg("Financials returned as bare list")
		return filings, nil
	}

	var resp struct {
		Symbol string                  `json:"symbol"`
		Data   []models.ReportedFiling `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debug().Str("symbol", symbol).Int("filings", len(resp.Data)).Msg("Financials received")
	return resp.Data, nil
}

// GetEarnings retrieves reported EPS against estimates, newest first
func (c *Client) GetEarnings(ctx context.Context, symbol string) ([]models.EarningsSurprise, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.get(ctx, "/stock/earnings", params)
	if err != nil {
		return nil, err
	}

	var earnings []models.EarningsSurprise
	if err := json.Unmarshal(body, &earnings); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return earnings, nil
}

// GetCompanyNews retrieves articles published between from and to
func (c *Client) GetCompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]models.CompanyNews, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))

	body, err := c.get(ctx, "/company-news", params)
	if err != nil {
		return nil, err
	}

	var news []models.CompanyNews
	if err := json.Unmarshal(body, &news); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return news, nil
}
