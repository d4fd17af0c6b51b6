package models

// ReportedFiling is one filing from Finnhub /stock/financials-reported
type ReportedFiling struct {
	Symbol    string     `json:"symbol"`
	Year      int        `json:"year"`
	Quarter   int        `json:"quarter"`
	Form      string     `json:"form"`
	StartDate string     `json:"startDate"`
	EndDate   string     `json:"endDate"`
	FiledDate string     `json:"filedDate"`
	Report    Statements `json:"report"`
}

// EarningsSurprise is one period from Finnhub /stock/earnings
type EarningsSurprise struct {
	Symbol          string   `json:"symbol"`
	Period          string   `json:"period"` // YYYY-MM-DD
	Year            int      `json:"year"`
	Quarter         int      `json:"quarter"`
	Actual          *float64 `json:"actual"`
	Estimate        *float64 `json:"estimate"`
	Surprise        *float64 `json:"surprise"`
	SurprisePercent *float64 `json:"surprisePercent"`
	RevenueActual   *float64 `json:"revenueActual,omitempty"`
	RevenueEstimate *float64 `json:"revenueEstimate,omitempty"`
}

// CompanyNews is one article from Finnhub /company-news
type CompanyNews struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Datetime int64  `json:"datetime"` // unix seconds
	Headline string `json:"headline"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// SecondaryFinancials holds the statements a secondary provider returned,
// already shaped as FinancialReport records.
type SecondaryFinancials struct {
	Quarterly []FinancialReport `json:"quarterly"`
	Annual    []FinancialReport `json:"annual"`
}
