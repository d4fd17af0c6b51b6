// Package models defines data structures for stockdash
package models

import (
	"time"
)

// Report frequencies
const (
	ReportQuarterly = "quarterly"
	ReportAnnual    = "annual"
)

// ReportTypeFor maps a requested frequency to a stored report type.
// Anything other than "annual" is quarterly.
func ReportTypeFor(freq string) string {
	if freq == ReportAnnual {
		return ReportAnnual
	}
	return ReportQuarterly
}

// LineItem is one concept of a reported financial statement
type LineItem struct {
	Concept string  `json:"concept"`
	Label   string  `json:"label,omitempty"`
	Unit    string  `json:"unit,omitempty"`
	Value   float64 `json:"value"`
}

// Statements holds the raw reported statements of one filing
type Statements struct {
	BalanceSheet    []LineItem `json:"bs,omitempty"`
	IncomeStatement []LineItem `json:"ic,omitempty"`
	CashFlow        []LineItem `json:"cf,omitempty"`
}

// FinancialReport is one quarterly or annual filing for a symbol.
// Natural key: symbol, report type, year, quarter.
type FinancialReport struct {
	Symbol     string     `json:"symbol"`
	Year       int        `json:"year"`
	Quarter    int        `json:"quarter,omitempty"` // 0 for annual reports
	ReportType string     `json:"report_type"`       // "quarterly" or "annual"
	FilingDate *time.Time `json:"filing_date,omitempty"`
	Report     Statements `json:"report"`

	// Key metrics extracted from the income statement
	Revenue   *float64 `json:"revenue,omitempty"`
	NetIncome *float64 `json:"net_income,omitempty"`
	EPS       *float64 `json:"eps,omitempty"`

	Source string `json:"source,omitempty"` // set on records that did not come from the store
}

// EarningsRecord is one reported earnings period.
// Natural key: symbol, period.
type EarningsRecord struct {
	Symbol             string    `json:"symbol"`
	Period             time.Time `json:"period"`
	Year               int       `json:"year"`
	Quarter            int       `json:"quarter"`
	EPSActual          *float64  `json:"eps_actual,omitempty"`
	EPSEstimate        *float64  `json:"eps_estimate,omitempty"`
	EPSSurprise        *float64  `json:"eps_surprise,omitempty"`         // actual - estimate
	EPSSurprisePct     *float64  `json:"eps_surprise_percent,omitempty"` // surprise / |estimate| * 100
	RevenueActual      *float64  `json:"revenue_actual,omitempty"`
	RevenueEstimate    *float64  `json:"revenue_estimate,omitempty"`
	RevenueSurprise    *float64  `json:"revenue_surprise,omitempty"`
	RevenueSurprisePct *float64  `json:"revenue_surprise_percent,omitempty"`
	IsBeat             *bool     `json:"is_beat,omitempty"`
	Source             string    `json:"source,omitempty"`
}

// NewsArticle is one company news item.
// Natural key: symbol, URL.
type NewsArticle struct {
	Symbol    string    `json:"symbol"`
	Headline  string    `json:"headline"`
	Summary   string    `json:"summary,omitempty"`
	URL       string    `json:"url"`
	Source    string    `json:"source,omitempty"`
	Category  string    `json:"category,omitempty"`
	Related   string    `json:"related,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Published time.Time `json:"datetime"`
	Sentiment float64   `json:"sentiment"` // VADER compound score of the headline, -1..1
}

// PriceBar represents a single day's price data
type PriceBar struct {
	Symbol          string    `json:"symbol"`
	Date            time.Time `json:"date"`
	Open            float64   `json:"open"`
	High            float64   `json:"high"`
	Low             float64   `json:"low"`
	Close           float64   `json:"close"`
	Volume          int64     `json:"volume"`
	MovingAverage20 *float64  `json:"moving_average_20,omitempty"` // nil until 20 closes are available
}

// DashboardEntry aggregates every entity for one symbol
type DashboardEntry struct {
	Symbol           string            `json:"symbol"`
	Financials       []FinancialReport `json:"financials"`
	FinancialsSource string            `json:"financials_source"`
	Earnings         []EarningsRecord  `json:"earnings"`
	EarningsSource   string            `json:"earnings_source"`
	News             []NewsArticle     `json:"news"`
	NewsSource       string            `json:"news_source"`
	AverageSentiment *float64          `json:"average_sentiment"` // nil without news
	Errors           []string          `json:"errors,omitempty"`
}
