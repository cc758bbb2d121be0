package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/tripreel/internal/domain/model"
	"github.com/hszk-dev/tripreel/internal/domain/repository"
	"github.com/hszk-dev/tripreel/internal/infrastructure/youtube"
)

const (
	// DefaultMaxRetries is the default maximum number of retry attempts before marking as failed.
	DefaultMaxRetries = 3
)

// ErrNoVideoDetails means YouTube returned nothing for any of a job's videos.
// The task is retried; a job whose videos are all gone fails at MaxRetries.
var ErrNoVideoDetails = errors.New("no video details returned")

// DetailsFetcher looks up video durations.
type DetailsFetcher interface {
	GetVideoDetails(ctx context.Context, ids []string) (map[string]youtube.VideoDetails, error)
}

// ReelPlanner turns a job and its video durations into an edit list.
type ReelPlanner interface {
	Plan(job *model.ExportJob, durations map[string]int, now time.Time) model.HighlightReel
}

// ExportWorkerConfig holds configuration for ExportWorker.
type ExportWorkerConfig struct {
	// MaxRetries is the maximum number of retry attempts before marking the job as failed.
	MaxRetries int
}

// DefaultExportWorkerConfig returns the default configuration.
func DefaultExportWorkerConfig() ExportWorkerConfig {
	return ExportWorkerConfig{
		MaxRetries: DefaultMaxRetries,
	}
}

// ExportWorker defines the interface for building highlight reels.
type ExportWorker interface {
	// ProcessTask handles an export task from the message queue.
	// Returns nil on success or permanent failure (max retries exceeded,
	// unknown job, nothing to put in the reel).
	// Returns error for transient failures that should trigger a retry.
	ProcessTask(ctx context.Context, task repository.ExportTask) error
}

type exportWorker struct {
	repo    repository.ExportRepository
	storage repository.ObjectStorage
	details DetailsFetcher
	planner ReelPlanner
	now     func() time.Time

	maxRetries int
}

// NewExportWorker creates a new ExportWorker instance.
func NewExportWorker(
	repo repository.ExportRepository,
	storage repository.ObjectStorage,
	details DetailsFetcher,
	planner ReelPlanner,
	cfg ExportWorkerConfig,
) ExportWorker {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &exportWorker{
		repo:       repo,
		storage:    storage,
		details:    details,
		planner:    planner,
		now:        time.Now,
		maxRetries: cfg.MaxRetries,
	}
}

// ProcessTask loads the job, fetches video durations, plans the reel,
// uploads the manifest and marks the job READY.
func (w *exportWorker) ProcessTask(ctx context.Context, task repository.ExportTask) error {
	if task.RetryCount >= w.maxRetries {
		if err := w.markFailed(ctx, task.ExportID); err != nil {
			slog.Error("failed to mark export as failed",
				"export_id", task.ExportID,
				"retry_count", task.RetryCount,
				"error", err,
			)
		}
		return nil
	}

	job, err := w.repo.GetByID(ctx, task.ExportID)
	if err != nil {
		if errors.Is(err, repository.ErrExportNotFound) {
			slog.Warn("dropping task for unknown export", "export_id", task.ExportID)
			return nil
		}
		return fmt.Errorf("get export: %w", err)
	}

	switch job.Status {
	case model.StatusReady, model.StatusFailed:
		return nil
	case model.StatusPending:
		if err := job.TransitionTo(model.StatusProcessing); err != nil {
			return fmt.Errorf("transition to processing: %w", err)
		}
		if err := w.repo.UpdateStatus(ctx, job.ID, model.StatusProcessing); err != nil {
			return fmt.Errorf("update export status: %w", err)
		}
	}

	details, err := w.details.GetVideoDetails(ctx, job.VideoIDs)
	if err != nil {
		if errors.Is(err, youtube.ErrMissingAPIKey) {
			slog.Error("youtube api key not configured, failing export", "export_id", job.ID)
			return w.fail(ctx, job)
		}
		return fmt.Errorf("get video details: %w", err)
	}
	if len(details) == 0 {
		return fmt.Errorf("get video details: %w", ErrNoVideoDetails)
	}

	durations := make(map[string]int, len(details))
	for id, d := range details {
		durations[id] = d.DurationSeconds
	}

	reel := w.planner.Plan(job, durations, w.now())
	if len(reel.Clips) == 0 {
		slog.Warn("no usable clips for export",
			"export_id", job.ID,
			"skipped", len(reel.SkippedVideos),
		)
		return w.fail(ctx, job)
	}

	key, err := w.uploadReel(ctx, job.ID, reel)
	if err != nil {
		return fmt.Errorf("upload reel: %w", err)
	}

	job.SetManifestKey(key)
	if err := job.TransitionTo(model.StatusReady); err != nil {
		return fmt.Errorf("transition to ready: %w", err)
	}
	if err := w.repo.Update(ctx, job); err != nil {
		return fmt.Errorf("update export: %w", err)
	}

	slog.Info("export ready",
		"export_id", job.ID,
		"clips", len(reel.Clips),
		"total_seconds", reel.TotalSeconds,
	)
	return nil
}

func (w *exportWorker) uploadReel(ctx context.Context, id uuid.UUID, reel model.HighlightReel) (string, error) {
	data, err := json.MarshalIndent(reel, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode reel: %w", err)
	}

	key := manifestKey(id)
	if err := w.storage.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return "", fmt.Errorf("storage upload: %w", err)
	}
	return key, nil
}

// fail marks a PROCESSING job FAILED and acks the task. A manifest left by
// an earlier attempt whose status update was lost is removed.
func (w *exportWorker) fail(ctx context.Context, job *model.ExportJob) error {
	if err := job.TransitionTo(model.StatusFailed); err != nil {
		return fmt.Errorf("transition to failed: %w", err)
	}
	if err := w.storage.Delete(ctx, manifestKey(job.ID)); err != nil {
		slog.Warn("failed to delete stale manifest",
			"export_id", job.ID,
			"error", err,
		)
	}
	job.SetManifestKey("")
	if err := w.repo.Update(ctx, job); err != nil {
		return fmt.Errorf("update export: %w", err)
	}
	return nil
}

// markFailed updates the job status to FAILED when it is still in flight.
func (w *exportWorker) markFailed(ctx context.Context, id uuid.UUID) error {
	job, err := w.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get export: %w", err)
	}

	if job.Status != model.StatusProcessing && job.Status != model.StatusPending {
		return nil
	}

	return w.fail(ctx, job)
}
