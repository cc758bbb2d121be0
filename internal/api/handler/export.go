package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hszk-dev/tripreel/internal/domain/model"
	"github.com/hszk-dev/tripreel/internal/domain/repository"
	"github.com/hszk-dev/tripreel/internal/usecase"
)

type CreateExportRequest struct {
	TripName string   `json:"trip_name"`
	City     string   `json:"city"`
	VideoIDs []string `json:"video_ids"`
}

type ExportResponse struct {
	ID          string   `json:"id"`
	TripName    string   `json:"trip_name"`
	City        string   `json:"city"`
	VideoIDs    []string `json:"video_ids"`
	Status      string   `json:"status"`
	DownloadURL string   `json:"download_url,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// ExportHandler handles highlight export requests.
type ExportHandler struct {
	svc usecase.ExportService
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(svc usecase.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// Create handles POST /v1/exports
func (h *ExportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	job, err := h.svc.CreateExport(r.Context(), usecase.CreateExportInput{
		TripName: req.TripName,
		City:     req.City,
		VideoIDs: req.VideoIDs,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/v1/exports/"+job.ID.String())
	JSON(w, http.StatusAccepted, toExportResponse(job, ""))
}

// Get handles GET /v1/exports/{id}
func (h *ExportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_export_id", "Export ID must be a valid UUID")
		return
	}

	out, err := h.svc.GetExport(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toExportResponse(out.Job, out.DownloadURL))
}

// Reel handles GET /v1/exports/{id}/reel and returns the edit list inline.
func (h *ExportHandler) Reel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_export_id", "Export ID must be a valid UUID")
		return
	}

	reel, err := h.svc.GetReel(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, reel)
}

func (h *ExportHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrExportNotFound):
		Error(w, http.StatusNotFound, "export_not_found", "Export not found")
	case errors.Is(err, usecase.ErrExportNotReady):
		Error(w, http.StatusConflict, "export_not_ready", "Export is not ready yet")
	case errors.Is(err, repository.ErrObjectNotFound):
		Error(w, http.StatusNotFound, "reel_not_found", "Reel manifest not found")
	case errors.Is(err, model.ErrEmptyTripName):
		Error(w, http.StatusBadRequest, "invalid_trip_name", "Trip name cannot be empty")
	case errors.Is(err, model.ErrTripNameTooLong):
		Error(w, http.StatusBadRequest, "invalid_trip_name", "Trip name exceeds maximum length")
	case errors.Is(err, model.ErrNoVideos):
		Error(w, http.StatusBadRequest, "invalid_video_ids", "At least one video is required")
	case errors.Is(err, model.ErrTooManyVideos):
		Error(w, http.StatusBadRequest, "invalid_video_ids", "Too many videos for a single export")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func toExportResponse(job *model.ExportJob, downloadURL string) ExportResponse {
	return ExportResponse{
		ID:          job.ID.String(),
		TripName:    job.TripName,
		City:        job.City,
		VideoIDs:    job.VideoIDs,
		Status:      job.Status.String(),
		DownloadURL: downloadURL,
		CreatedAt:   job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   job.UpdatedAt.Format(time.RFC3339),
	}
}
