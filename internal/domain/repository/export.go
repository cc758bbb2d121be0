package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/hszk-dev/tripreel/internal/domain/model"
)

// ExportRepository defines the interface for export job persistence.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type ExportRepository interface {
	// Create persists a new export job.
	// Returns ErrDuplicateExport if a job with the same ID exists.
	Create(ctx context.Context, job *model.ExportJob) error

	// GetByID retrieves an export job by its identifier.
	// Returns nil and ErrExportNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExportJob, error)

	// Update persists changes to an existing export job.
	// Returns ErrExportNotFound if the job does not exist.
	Update(ctx context.Context, job *model.ExportJob) error

	// UpdateStatus updates only the status field of a job.
	// Returns ErrExportNotFound if the job does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error
}
