package repository

import (
	"context"

	"github.com/google/uuid"
)

// ExportTask is the queue message asking a worker to build a highlight reel.
type ExportTask struct {
	ExportID   uuid.UUID `json:"export_id"`
	RetryCount int       `json:"retry_count"`
}

// MessageQueue defines the interface for message queue operations.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type MessageQueue interface {
	// PublishExportTask sends an export task to the queue.
	PublishExportTask(ctx context.Context, task ExportTask) error

	// ConsumeExportTasks blocks, calling handler for each received task,
	// until ctx is cancelled or the delivery channel closes.
	ConsumeExportTasks(ctx context.Context, handler func(task ExportTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
