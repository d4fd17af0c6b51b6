package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/stockdash/internal/common"
)

func TestWriteTimeout_SizedToDashboardBatch(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Fallback.FinancialsETLTimeout = "20s"
	cfg.Fallback.EarningsETLTimeout = "15s"
	cfg.Fallback.NewsETLTimeout = "10s"
	cfg.Dashboard.Concurrency = 5

	// 25 symbols in 5 rounds of 45s, plus slack
	assert.Equal(t, 5*45*time.Second+30*time.Second, writeTimeout(cfg))

	cfg.Server.WriteTimeout = "90s"
	assert.Equal(t, 90*time.Second, writeTimeout(cfg))
}

func TestNewServer_UsesConfiguredTimeouts(t *testing.T) {
	srv, a := newTestServer(&mockMarket{})
	assert.Equal(t, "0.0.0.0:8080", srv.server.Addr)
	assert.Equal(t, 15*time.Second, srv.server.ReadTimeout)
	assert.Equal(t, 60*time.Second, srv.server.IdleTimeout)
	assert.Equal(t, writeTimeout(a.Config), srv.server.WriteTimeout)
	assert.NotNil(t, srv.server.ErrorLog)

	a.Config.Server.Port = 9191
	a.Config.Server.ReadTimeout = "5s"
	a.Config.Server.IdleTimeout = "2m"
	srv = NewServer(a)
	assert.Equal(t, "0.0.0.0:9191", srv.server.Addr)
	assert.Equal(t, 5*time.Second, srv.server.ReadTimeout)
	assert.Equal(t, 2*time.Minute, srv.server.IdleTimeout)
}
