package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/bobmcallan/stockdash/internal/cache"
	"github.com/bobmcallan/stockdash/internal/fallback"
	"github.com/bobmcallan/stockdash/internal/models"
	"github.com/bobmcallan/stockdash/internal/services/market"
)

const (
	defaultNewsDays = 30
	maxNewsDays     = 365
	maxDashboard    = 25
)

// resultResponse is the JSON shape of one fallback lookup. Data is never
// null so clients can iterate without a nil check.
type resultResponse[T any] struct {
	Symbol string          `json:"symbol"`
	Data   []T             `json:"data"`
	Count  int             `json:"count"`
	Source fallback.Source `json:"source"`
	Error  string          `json:"error,omitempty"`
}

func writeResult[T any](w http.ResponseWriter, symbol string, r fallback.Result[T]) {
	data := r.Data
	if data == nil {
		data = []T{}
	}
	WriteJSON(w, http.StatusOK, resultResponse[T]{
		Symbol: symbol,
		Data:   data,
		Count:  len(data),
		Source: r.Source,
		Error:  r.Error,
	})
}

// handleFinancials handles GET /api/financials/{symbol}?freq=quarterly|annual
func (s *Server) handleFinancials(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol, ok := SymbolParam(w, r, "/api/financials/")
	if !ok {
		return
	}

	freq := r.URL.Query().Get("freq")
	switch freq {
	case "":
		freq = models.ReportQuarterly
	case models.ReportQuarterly, models.ReportAnnual:
	default:
		WriteErrorWithCode(w, http.StatusBadRequest, "Invalid freq: must be quarterly or annual", "invalid_freq")
		return
	}

	writeResult(w, symbol, s.app.MarketService.GetFinancials(r.Context(), symbol, freq))
}

// handleEarnings handles GET /api/earnings/{symbol}
func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol, ok := SymbolParam(w, r, "/api/earnings/")
	if !ok {
		return
	}

	writeResult(w, symbol, s.app.MarketService.GetEarnings(r.Context(), symbol))
}

// handleNews handles GET /api/news/{symbol}?days=N
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol, ok := SymbolParam(w, r, "/api/news/")
	if !ok {
		return
	}
	days, ok := IntQuery(w, r, "days", defaultNewsDays, maxNewsDays)
	if !ok {
		return
	}

	writeResult(w, symbol, s.app.MarketService.GetNews(r.Context(), symbol, days))
}

// handlePrices handles GET /api/prices/{symbol}
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol, ok := SymbolParam(w, r, "/api/prices/")
	if !ok {
		return
	}

	bars, err := s.app.MarketService.GetDailyPrices(r.Context(), symbol)
	if err != nil {
		s.writeUpstreamError(w, symbol, err)
		return
	}
	if bars == nil {
		bars = []models.PriceBar{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"prices": bars,
		"count":  len(bars),
	})
}

// writeUpstreamError maps a failed direct lookup to a status code.
func (s *Server) writeUpstreamError(w http.ResponseWriter, symbol string, err error) {
	var limited *cache.RateLimitExceeded
	switch {
	case errors.As(err, &limited):
		secs := int(math.Ceil(limited.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		WriteErrorWithCode(w, http.StatusTooManyRequests, err.Error(), "rate_limited")
	case errors.Is(err, market.ErrNoPriceSource):
		WriteErrorWithCode(w, http.StatusServiceUnavailable, err.Error(), "no_source")
	default:
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Upstream lookup failed")
		WriteErrorWithCode(w, http.StatusBadGateway, err.Error(), "upstream_error")
	}
}

// handleDashboard handles GET /api/dashboard?symbols=A,B
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbols, ok := SymbolsQuery(w, r, "symbols")
	if !ok {
		return
	}
	if len(symbols) > maxDashboard {
		WriteErrorWithCode(w, http.StatusBadRequest, "Too many symbols: limit is "+strconv.Itoa(maxDashboard), "too_many_symbols")
		return
	}

	entries, err := s.app.MarketService.GetDashboard(r.Context(), symbols)
	if err != nil {
		WriteError(w, http.StatusServiceUnavailable, "Dashboard aggregation interrupted: "+err.Error())
		return
	}
	if entries == nil {
		entries = []models.DashboardEntry{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
