package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/tripreel/internal/domain/model"
	"github.com/hszk-dev/tripreel/internal/domain/repository"
)

// ErrExportNotReady is returned when a reel is requested before the job is READY.
var ErrExportNotReady = errors.New("export is not ready")

// CreateExportInput contains the input parameters for creating an export.
type CreateExportInput struct {
	TripName string
	City     string
	VideoIDs []string
}

// ExportOutput is an export job and, once ready, where to download its reel.
type ExportOutput struct {
	Job         *model.ExportJob
	DownloadURL string
}

// ExportService defines the interface for highlight export operations.
type ExportService interface {
	// CreateExport persists a PENDING job and queues it for a worker.
	CreateExport(ctx context.Context, input CreateExportInput) (*model.ExportJob, error)

	// GetExport returns a job, with a presigned download URL when READY.
	GetExport(ctx context.Context, id uuid.UUID) (*ExportOutput, error)

	// GetReel reads a READY job's edit list back from storage.
	GetReel(ctx context.Context, id uuid.UUID) (*model.HighlightReel, error)
}

// ExportServiceConfig holds configuration for ExportService.
type ExportServiceConfig struct {
	DownloadURLExpiry time.Duration
}

// DefaultExportServiceConfig returns the default configuration.
func DefaultExportServiceConfig() ExportServiceConfig {
	return ExportServiceConfig{
		DownloadURLExpiry: time.Hour,
	}
}

type exportService struct {
	repo    repository.ExportRepository
	storage repository.ObjectStorage
	queue   repository.MessageQueue

	downloadURLExpiry time.Duration
}

// NewExportService creates a new ExportService instance.
func NewExportService(
	repo repository.ExportRepository,
	storage repository.ObjectStorage,
	queue repository.MessageQueue,
	cfg ExportServiceConfig,
) ExportService {
	return &exportService{
		repo:              repo,
		storage:           storage,
		queue:             queue,
		downloadURLExpiry: cfg.DownloadURLExpiry,
	}
}

// CreateExport validates the request, stores the job and publishes a task.
// If the task cannot be published the job is marked FAILED so it does not
// sit in PENDING forever.
func (s *exportService) CreateExport(ctx context.Context, input CreateExportInput) (*model.ExportJob, error) {
	job, err := model.NewExportJob(input.TripName, input.City, input.VideoIDs)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create export: %w", err)
	}

	if err := s.queue.PublishExportTask(ctx, repository.ExportTask{ExportID: job.ID}); err != nil {
		if uerr := s.repo.UpdateStatus(ctx, job.ID, model.StatusFailed); uerr != nil {
			slog.Error("failed to mark unpublished export as failed",
				"export_id", job.ID,
				"error", uerr,
			)
		}
		return nil, fmt.Errorf("publish export task: %w", err)
	}

	return job, nil
}

// GetExport retrieves an export job by ID.
func (s *exportService) GetExport(ctx context.Context, id uuid.UUID) (*ExportOutput, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &ExportOutput{Job: job}
	if !job.IsReady() || job.ManifestKey == "" {
		return out, nil
	}

	url, err := s.storage.GeneratePresignedDownloadURL(ctx, job.ManifestKey, s.downloadURLExpiry)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			slog.Warn("ready export has no manifest", "export_id", id, "key", job.ManifestKey)
			return out, nil
		}
		return nil, fmt.Errorf("generate presigned download URL: %w", err)
	}
	out.DownloadURL = url
	return out, nil
}

// GetReel loads the manifest of a READY export.
func (s *exportService) GetReel(ctx context.Context, id uuid.UUID) (*model.HighlightReel, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.IsReady() || job.ManifestKey == "" {
		return nil, ErrExportNotReady
	}

	body, err := s.storage.Download(ctx, job.ManifestKey)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("download manifest: %w", err)
	}
	defer body.Close()

	var reel model.HighlightReel
	if err := json.NewDecoder(body).Decode(&reel); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &reel, nil
}

// manifestKey returns the storage key of a job's reel manifest.
// Format: exports/{export_id}/reel.json
func manifestKey(id uuid.UUID) string {
	return path.Join("exports", id.String(), "reel.json")
}
