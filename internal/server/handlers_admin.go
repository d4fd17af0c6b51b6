package server

import (
	"net/http"

	"github.com/bobmcallan/stockdash/internal/models"
)

// handleAdminCache handles GET /api/admin/cache (statistics) and
// DELETE /api/admin/cache (drop every cached result).
func (s *Server) handleAdminCache(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodDelete) {
		return
	}

	if r.Method == http.MethodDelete {
		before := s.app.MarketService.CacheStats().EntryCount
		s.app.MarketService.ClearCache()
		s.logger.Info().Int("entries", before).Msg("Cache cleared via admin endpoint")
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "cleared",
			"cleared": before,
		})
		return
	}

	WriteJSON(w, http.StatusOK, s.app.MarketService.CacheStats())
}

// handleAdminRateLimits handles DELETE /api/admin/ratelimits.
func (s *Server) handleAdminRateLimits(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	before := s.app.MarketService.CacheStats().RateLimitedKeys
	s.app.MarketService.ClearRateLimits()
	s.logger.Info().Int("keys", before).Msg("Rate limits cleared via admin endpoint")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "cleared",
		"cleared": before,
	})
}

// handleAdminJobs handles GET /api/admin/jobs. Reports pool statistics and
// the most recent refresh jobs.
func (s *Server) handleAdminJobs(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if s.app.JobManager == nil {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"enabled": false,
			"stats":   models.JobStats{},
			"jobs":    []models.Job{},
		})
		return
	}

	jobs := s.app.JobManager.Jobs()
	if jobs == nil {
		jobs = []models.Job{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"enabled": true,
		"stats":   s.app.JobManager.Stats(),
		"jobs":    jobs,
	})
}

// handleAdminStorage handles DELETE /api/admin/storage (dev mode only).
// Purges every stored record and the cache that was built on it.
func (s *Server) handleAdminStorage(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Storage purge disabled in production")
		return
	}
	if s.app.Storage == nil {
		WriteError(w, http.StatusServiceUnavailable, "Storage not available")
		return
	}

	counts, err := s.app.Storage.PurgeAll(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Storage purge failed")
		WriteError(w, http.StatusInternalServerError, "Failed to purge storage: "+err.Error())
		return
	}
	s.app.MarketService.ClearCache()

	s.logger.Warn().Interface("counts", counts).Msg("Storage purged via admin endpoint")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "purged",
		"counts": counts,
	})
}
