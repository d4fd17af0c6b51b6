package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stockdash/internal/app"
	"github.com/bobmcallan/stockdash/internal/common"
	"github.com/bobmcallan/stockdash/internal/server"
	"github.com/bobmcallan/stockdash/internal/storage/surrealdb"
	tcommon "github.com/bobmcallan/stockdash/tests/common"
)

// fakeFinnhub serves canned Finnhub payloads for AAPL and empty payloads
// for every other symbol, counting requests per path.
type fakeFinnhub struct {
	mu   sync.Mutex
	hits map[string]int
}

func (f *fakeFinnhub) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeFinnhub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	f.mu.Unlock()

	symbol := r.URL.Query().Get("symbol")
	known := symbol == "AAPL"
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/stock/financials-reported":
		if !known {
			fmt.Fprintf(w, `{"symbol":%q,"data":[]}`, symbol)
			return
		}
		if r.URL.Query().Get("freq") == "annual" {
			fmt.Fprint(w, `{"symbol":"AAPL","data":[{"symbol":"AAPL","year":2023,"quarter":0,"form":"10-K","filedDate":"2023-11-03 00:00:00",
				"report":{"ic":[{"concept":"us-gaap_Revenues","value":383.3e9}]}}]}`)
			return
		}
		fmt.Fprint(w, `{"symbol":"AAPL","data":[{"symbol":"AAPL","year":2024,"quarter":1,"form":"10-Q","filedDate":"2024-05-03 00:00:00",
			"report":{"ic":[{"concept":"us-gaap_Revenues","value":90.7e9},{"concept":"us-gaap_NetIncomeLoss","value":23.6e9}]}}]}`)
	case "/stock/earnings":
		if !known {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[{"symbol":"AAPL","period":"2024-03-31","year":2024,"quarter":1,"actual":1.53,"estimate":1.5}]`)
	case "/company-news":
		if !known {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprintf(w, `[{"id":1,"category":"company","datetime":%d,"headline":"Apple ships great new iPhone","source":"Reuters","summary":"s","url":"https://example.com/aapl-1"}]`,
			time.Now().Add(-time.Hour).Unix())
	default:
		http.NotFound(w, r)
	}
}

// Env is one isolated stack: SurrealDB database, fake upstreams, app and HTTP server.
type Env struct {
	t       *testing.T
	Finnhub *fakeFinnhub
	App     *app.App
	Server  *httptest.Server
}

// NewEnv builds the full stack on a fresh database. Skips under -short.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping API test in short mode")
	}
	for _, k := range []string{"FINNHUB_API_KEY", "STOCKDASH_FINNHUB_API_KEY", "ALPHA_VANTAGE_API_KEY", "STOCKDASH_ALPHAVANTAGE_API_KEY"} {
		t.Setenv(k, "")
	}

	sc := tcommon.StartSurrealDB(t)

	finnhub := &fakeFinnhub{hits: make(map[string]int)}
	finnhubSrv := httptest.NewServer(finnhub)
	t.Cleanup(finnhubSrv.Close)

	yahooSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(yahooSrv.Close)

	cfg := common.NewDefaultConfig()
	cfg.Environment = "test"
	cfg.Storage = common.StorageConfig{
		Address:   sc.Address(),
		Namespace: "stockdash_api_test",
		Database:  fmt.Sprintf("a_%s_%d", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()), time.Now().UnixNano()%100000),
		Username:  "root",
		Password:  "root",
	}
	cfg.Clients.Finnhub.BaseURL = finnhubSrv.URL
	cfg.Clients.Finnhub.APIKey = "test-key"
	cfg.Clients.Finnhub.RateLimit = 50
	cfg.Clients.Yahoo.BaseURL = yahooSrv.URL
	cfg.Clients.Yahoo.RateLimit = 50

	logger := common.NewSilentLogger()
	mgr, err := surrealdb.NewManager(logger, cfg)
	require.NoError(t, err)

	a := app.New(cfg, mgr, logger)
	t.Cleanup(a.Close)

	ts := httptest.NewServer(server.NewServer(a).Handler())
	t.Cleanup(ts.Close)

	return &Env{t: t, Finnhub: finnhub, App: a, Server: ts}
}

// Do sends a request and decodes the JSON response body.
func (e *Env) Do(method, path string) (int, map[string]interface{}) {
	e.t.Helper()

	req, err := http.NewRequest(method, e.Server.URL+path, nil)
	require.NoError(e.t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)

	var out map[string]interface{}
	require.NoError(e.t, json.Unmarshal(body, &out), string(body))
	return resp.StatusCode, out
}
