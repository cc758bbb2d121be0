package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/tripreel/internal/domain/model"
	"github.com/hszk-dev/tripreel/internal/usecase"
)

// Request/Response types

type AnalyzeVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	City        string `json:"city"`
}

type RelatedVideosResponse struct {
	Videos []model.Video `json:"videos"`
}

// VideoHandler handles video search and analysis requests.
type VideoHandler struct {
	svc usecase.VideoService
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(svc usecase.VideoService) *VideoHandler {
	return &VideoHandler{svc: svc}
}

// Search handles GET /v1/videos/search
func (h *VideoHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("query"))
	if query == "" {
		Error(w, http.StatusBadRequest, "invalid_query", "Query is required")
		return
	}

	limit, ok := parseLimit(w, q.Get("limit"))
	if !ok {
		return
	}

	out := h.svc.SearchVideos(r.Context(), usecase.SearchVideosInput{
		Query:   query,
		City:    strings.TrimSpace(q.Get("city")),
		Country: strings.TrimSpace(q.Get("country")),
		Type:    q.Get("type"),
		Limit:   limit,
	})

	JSON(w, http.StatusOK, out)
}

// Related handles GET /v1/videos/{id}/related
func (h *VideoHandler) Related(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	title := strings.TrimSpace(q.Get("title"))
	if title == "" {
		Error(w, http.StatusBadRequest, "invalid_title", "Title is required")
		return
	}

	limit, ok := parseLimit(w, q.Get("limit"))
	if !ok {
		return
	}

	videos := h.svc.GetRelatedVideos(r.Context(), usecase.RelatedVideosInput{
		VideoID:    chi.URLParam(r, "id"),
		VideoTitle: title,
		City:       strings.TrimSpace(q.Get("city")),
		Limit:      limit,
	})

	JSON(w, http.StatusOK, RelatedVideosResponse{Videos: videos})
}

// Analyze handles POST /v1/videos/{id}/analysis
func (h *VideoHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		Error(w, http.StatusBadRequest, "invalid_title", "Title is required")
		return
	}

	analysis := h.svc.AnalyzeVideo(r.Context(), usecase.AnalyzeVideoInput{
		VideoID:     chi.URLParam(r, "id"),
		Title:       req.Title,
		Description: req.Description,
		CityName:    req.City,
	})
	if analysis == nil {
		Error(w, http.StatusServiceUnavailable, "analysis_unavailable", "Video analysis is currently unavailable")
		return
	}

	JSON(w, http.StatusOK, analysis)
}

// CityCollection handles GET /v1/cities/{city}/videos
func (h *VideoHandler) CityCollection(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(chi.URLParam(r, "city"))
	if city == "" {
		Error(w, http.StatusBadRequest, "invalid_city", "City is required")
		return
	}

	q := r.URL.Query()
	out := h.svc.FetchCityCollection(r.Context(), city, strings.TrimSpace(q.Get("country")), q.Get("collection"))

	JSON(w, http.StatusOK, out)
}

// parseLimit reads an optional positive limit, writing a 400 when it is malformed.
// Zero means the service default.
func parseLimit(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		Error(w, http.StatusBadRequest, "invalid_limit", "Limit must be a positive integer")
		return 0, false
	}
	return limit, true
}
