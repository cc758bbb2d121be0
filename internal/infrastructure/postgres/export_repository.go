package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/tripreel/internal/domain/model"
	"github.com/hszk-dev/tripreel/internal/domain/repository"
	"github.com/hszk-dev/tripreel/internal/infrastructure/metrics"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Schema creates the export_jobs table when it does not exist.
const Schema = `
	CREATE TABLE IF NOT EXISTS export_jobs (
		id           UUID PRIMARY KEY,
		trip_name    VARCHAR(255) NOT NULL,
		city         TEXT NOT NULL DEFAULT '',
		video_ids    TEXT[] NOT NULL,
		status       VARCHAR(16) NOT NULL,
		manifest_key TEXT,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ExportRepository implements repository.ExportRepository using PostgreSQL.
type ExportRepository struct {
	db DBTX
}

// NewExportRepository creates a new ExportRepository instance.
func NewExportRepository(db DBTX) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create persists a new export job.
func (r *ExportRepository) Create(ctx context.Context, job *model.ExportJob) error {
	const query = `
		INSERT INTO export_jobs (id, trip_name, city, video_ids, status, manifest_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryInsert, metrics.TableExportJobs).Inc()

	_, err := r.db.Exec(ctx, query,
		job.ID,
		job.TripName,
		job.City,
		job.VideoIDs,
		job.Status.String(),
		nullString(job.ManifestKey),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicateExport
		}
		return fmt.Errorf("failed to create export job: %w", err)
	}

	return nil
}

// GetByID retrieves an export job by its unique identifier.
func (r *ExportRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExportJob, error) {
	const query = `
		SELECT id, trip_name, city, video_ids, status, manifest_key, created_at, updated_at
		FROM export_jobs
		WHERE id = $1
	`
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableExportJobs).Inc()

	var (
		job         model.ExportJob
		status      string
		manifestKey *string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.TripName,
		&job.City,
		&job.VideoIDs,
		&status,
		&manifestKey,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrExportNotFound
		}
		return nil, fmt.Errorf("failed to get export job by ID: %w", err)
	}

	job.Status = model.Status(status)
	if manifestKey != nil {
		job.ManifestKey = *manifestKey
	}

	return &job, nil
}

// Update persists the mutable fields of an existing export job.
func (r *ExportRepository) Update(ctx context.Context, job *model.ExportJob) error {
	const query = `
		UPDATE export_jobs
		SET status = $2, manifest_key = $3, updated_at = $4
		WHERE id = $1
	`
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableExportJobs).Inc()

	job.UpdatedAt = time.Now()

	tag, err := r.db.Exec(ctx, query,
		job.ID,
		job.Status.String(),
		nullString(job.ManifestKey),
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update export job: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrExportNotFound
	}

	return nil
}

// UpdateStatus updates only the status field of an export job.
func (r *ExportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	const query = `
		UPDATE export_jobs
		SET status = $2, updated_at = $3
		WHERE id = $1
	`
	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryUpdate, metrics.TableExportJobs).Inc()

	tag, err := r.db.Exec(ctx, query, id, status.String(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update export job status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrExportNotFound
	}

	return nil
}

// nullString returns nil for empty strings, otherwise returns a pointer to the string.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Compile-time verification that ExportRepository implements repository.ExportRepository.
var _ repository.ExportRepository = (*ExportRepository)(nil)
