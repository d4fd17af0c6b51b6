package server

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// PathParam extracts a path parameter from the URL path.
// For a pattern like /api/financials/{symbol}, calling PathParam(r, "/api/financials/", "")
// extracts the {symbol} part.
func PathParam(r *http.Request, prefix, suffix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if suffix != "" {
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			return rest
		}
		return rest[:idx]
	}
	// No suffix: return up to the next /
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

// NormalizeSymbol upper-cases and validates a ticker symbol.
func NormalizeSymbol(raw string) (string, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	return symbol, symbolPattern.MatchString(symbol)
}

// SymbolParam extracts and validates the {symbol} segment after prefix.
// Returns false and writes a 400 error if it is missing or malformed.
func SymbolParam(w http.ResponseWriter, r *http.Request, prefix string) (string, bool) {
	symbol, ok := NormalizeSymbol(PathParam(r, prefix, ""))
	if !ok {
		WriteErrorWithCode(w, http.StatusBadRequest, "Invalid or missing symbol", "invalid_symbol")
		return "", false
	}
	return symbol, true
}

// IntQuery parses a positive integer query parameter no greater than max.
// Missing parameters return def. Returns false and writes a 400 error if
// the value is malformed or out of range.
func IntQuery(w http.ResponseWriter, r *http.Request, name string, def, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 || v > max {
		WriteErrorWithCode(w, http.StatusBadRequest, "Invalid "+name+": must be between 1 and "+strconv.Itoa(max), "invalid_"+name)
		return 0, false
	}
	return v, true
}

// SymbolsQuery parses a comma separated symbols parameter. Blank items are
// skipped and duplicates dropped, keeping first-seen order.
func SymbolsQuery(w http.ResponseWriter, r *http.Request, name string) ([]string, bool) {
	raw := r.URL.Query().Get(name)
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}

	var symbols []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		symbol, ok := NormalizeSymbol(part)
		if !ok {
			WriteErrorWithCode(w, http.StatusBadRequest, "Invalid symbol: "+strings.TrimSpace(part), "invalid_symbol")
			return nil, false
		}
		if !seen[symbol] {
			seen[symbol] = true
			symbols = append(symbols, symbol)
		}
	}
	return symbols, true
}
