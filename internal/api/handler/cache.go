package handler

import (
	"net/http"

	"github.com/hszk-dev/tripreel/internal/infrastructure/cache"
	"github.com/hszk-dev/tripreel/internal/usecase"
)

type CacheStatsResponse struct {
	Caches []cache.Stats `json:"caches"`
}

// CacheHandler exposes cache administration.
type CacheHandler struct {
	svc usecase.VideoService
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(svc usecase.VideoService) *CacheHandler {
	return &CacheHandler{svc: svc}
}

// Stats handles GET /v1/cache/stats
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, CacheStatsResponse{Caches: h.svc.CacheStats()})
}

// Clear handles DELETE /v1/cache
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearCaches(r.Context()); err != nil {
		Error(w, http.StatusInternalServerError, "cache_clear_failed", "Shared cache could not be cleared")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
