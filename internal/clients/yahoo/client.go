// Package yahoo provides a client for the Yahoo Finance quoteSummary API,
// used as the secondary source for financials and earnings.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/stockdash/internal/common"
	"github.com/bobmcallan/stockdash/internal/models"
)

const (
	DefaultBaseURL   = "https://query2.finance.yahoo.com"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 2 // requests per second

	// SourceLabel marks records converted from Yahoo responses
	SourceLabel = "yahoo_finance"
)

// Client implements the YahooClient interface
type Client struct {
	baseURL    string
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

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
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
	return fmt.Sprintf("Yahoo Finance API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// value is Yahoo's {"raw": 1.0, "fmt": "1.00"} number wrapper. Missing
// values arrive as {}.
type value struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

type incomeStatement struct {
	EndDate      value `json:"endDate"`
	TotalRevenue value `json:"totalRevenue"`
	NetIncome    value `json:"netIncome"`
}

type earningsHistoryItem struct {
	EPSActual       value  `json:"epsActual"`
	EPSEstimate     value  `json:"epsEstimate"`
	EPSDifference   value  `json:"epsDifference"`
	SurprisePercent value  `json:"surprisePercent"`
	Quarter         value  `json:"quarter"`
	Period          string `json:"period"`
}

type summaryResult struct {
	IncomeStatementHistory struct {
		History []incomeStatement `json:"incomeStatementHistory"`
	} `json:"incomeStatementHistory"`
	IncomeStatementHistoryQuarterly struct {
		History []incomeStatement `json:"incomeStatementHistory"`
	} `json:"incomeStatementHistoryQuarterly"`
	EarningsHistory struct {
		History []earningsHistoryItem `json:"history"`
	} `json:"earningsHistory"`
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// quoteSummary fetches the given modules for symbol
func (c *Client) quoteSummary(ctx context.Context, symbol string, modules string) (*summaryResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	path := "/v10/finance/quoteSummary/" + url.PathEscape(symbol)
	params := url.Values{}
	params.Set("modules", modules)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; stockdash)")

	c.logger.Debug().Str("symbol", symbol).Str("modules", modules).Msg("Yahoo quoteSummary request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	var out summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if e := out.QuoteSummary.Error; e != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: e.Code + ": " + e.Description, Endpoint: path}
	}
	if len(out.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("no quoteSummary result for %s", symbol)
	}

	return &out.QuoteSummary.Result[0], nil
}

// GetFinancials retrieves quarterly and annual income statements as reports
// carrying Revenue and Net Income line items, newest first.
func (c *Client) GetFinancials(ctx context.Context, symbol string) (*models.SecondaryFinancials, error) {
	res, err := c.quoteSummary(ctx, symbol, "incomeStatementHistory,incomeStatementHistoryQuarterly")
	if err != nil {
		return nil, err
	}

	out := &models.SecondaryFinancials{
		Quarterly: convertStatements(symbol, models.ReportQuarterly, res.IncomeStatementHistoryQuarterly.History),
		Annual:    convertStatements(symbol, models.ReportAnnual, res.IncomeStatementHistory.History),
	}

	c.logger.Debug().
		Str("symbol", symbol).
		Int("quarterly", len(out.Quarterly)).
		Int("annual", len(out.Annual)).
		Msg("Yahoo financials received")

	return out, nil
}

// GetEarningsHistory retrieves recent reported EPS against estimates, newest first
func (c *Client) GetEarningsHistory(ctx context.Context, symbol string) ([]models.EarningsRecord, error) {
	res, err := c.quoteSummary(ctx, symbol, "earningsHistory")
	if err != nil {
		return nil, err
	}

	var records []models.EarningsRecord
	for _, h := range res.EarningsHistory.History {
		if h.Quarter.Raw == nil {
			continue
		}
		period := time.Unix(int64(*h.Quarter.Raw), 0).UTC()

		rec := models.EarningsRecord{
			Symbol:      symbol,
			Period:      period,
			Year:        period.Year(),
			Quarter:     quarterOf(period),
			EPSActual:   h.EPSActual.Raw,
			EPSEstimate: h.EPSEstimate.Raw,
			EPSSurprise: h.EPSDifference.Raw,
			Source:      SourceLabel,
		}
		if p := h.SurprisePercent.Raw; p != nil {
			pct := *p * 100
			rec.EPSSurprisePct = &pct
		}
		if rec.EPSActual != nil && rec.EPSEstimate != nil {
			beat := *rec.EPSActual > *rec.EPSEstimate
			rec.IsBeat = &beat
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Period.After(records[j].Period)
	})

	return records, nil
}

func convertStatements(symbol, reportType string, history []incomeStatement) []models.FinancialReport {
	var reports []models.FinancialReport
	for _, st := range history {
		if st.EndDate.Raw == nil {
			continue
		}
		end := time.Unix(int64(*st.EndDate.Raw), 0).UTC()

		r := models.FinancialReport{
			Symbol:     symbol,
			Year:       end.Year(),
			ReportType: reportType,
			FilingDate: &end,
			Revenue:    st.TotalRevenue.Raw,
			NetIncome:  st.NetIncome.Raw,
			Source:     SourceLabel,
		}
		if reportType == models.ReportQuarterly {
			r.Quarter = quarterOf(end)
		}
		if st.TotalRevenue.Raw != nil {
			r.Report.IncomeStatement = append(r.Report.IncomeStatement, models.LineItem{Concept: "Revenue", Value: *st.TotalRevenue.Raw})
		}
		if st.NetIncome.Raw != nil {
			r.Report.IncomeStatement = append(r.Report.IncomeStatement, models.LineItem{Concept: "Net Income", Value: *st.NetIncome.Raw})
		}
		reports = append(reports, r)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].FilingDate.After(*reports[j].FilingDate)
	})
	return reports
}

func quarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}
