package handler

import (
	"net/http"
	"strings"

	"github.com/hszk-dev/tripreel/internal/usecase"
)

// PlaceHandler resolves place cards.
type PlaceHandler struct {
	svc usecase.VideoService
}

// NewPlaceHandler creates a new PlaceHandler.
func NewPlaceHandler(svc usecase.VideoService) *PlaceHandler {
	return &PlaceHandler{svc: svc}
}

// Get handles GET /v1/places
func (h *PlaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		Error(w, http.StatusBadRequest, "invalid_name", "Place name is required")
		return
	}

	place := h.svc.GetPlaceDetails(r.Context(), name, strings.TrimSpace(r.URL.Query().Get("city")))
	if place == nil {
		Error(w, http.StatusNotFound, "place_not_found", "Place not found")
		return
	}

	JSON(w, http.StatusOK, place)
}
