// Package server exposes the market data services as a JSON REST API.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/bobmcallan/stockdash/internal/app"
	"github.com/bobmcallan/stockdash/internal/common"
)

// Server serves the API for one App.
type Server struct {
	app          *app.App
	server       *http.Server
	logger       *common.Logger
	shutdownChan chan struct{}
}

// SetShutdownChannel sets the channel signalled by POST /api/shutdown.
func (s *Server) SetShutdownChannel(ch chan struct{}) {
	s.shutdownChan = ch
}

// NewServer builds the routes, middleware and http.Server for a.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:    a,
		logger: a.Logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	cfg := a.Config.Server
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      applyMiddleware(mux, a.Logger),
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: writeTimeout(a.Config),
		IdleTimeout:  cfg.GetIdleTimeout(),
		ErrorLog:     log.New(a.Logger.With().Str("component", "http").Logger(), "", 0),
	}

	return s
}

// writeTimeout returns the configured write timeout, or one long enough for
// the largest dashboard batch when every refresh runs to its timeout.
func writeTimeout(cfg *common.Config) time.Duration {
	if d := cfg.Server.GetWriteTimeout(); d > 0 {
		return d
	}

	perSymbol := cfg.Fallback.GetFinancialsETLTimeout() +
		cfg.Fallback.GetEarningsETLTimeout() +
		cfg.Fallback.GetNewsETLTimeout()
	concurrency := cfg.Dashboard.GetConcurrency()
	rounds := (maxDashboard + concurrency - 1) / concurrency

	return time.Duration(rounds)*perSymbol + 30*time.Second
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens until Shutdown; it then returns http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Dur("write_timeout", s.server.WriteTimeout).
		Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
