package storage

import (
	"context"
	"time"

	"github.com/mkravets/offsync/internal/models"
)

// QueueStorage is the durable record of work not yet confirmed by the remote.
// Losing the process must not lose queued operations.
type QueueStorage interface {
	// AppendOperation adds an operation to the queue
	AppendOperation(ctx context.Context, op *models.SyncOperation) error

	// ReadyOperations returns up to limit operations with NextRetryAt <= now,
	// ordered by (priority ascending, created_at ascending)
	ReadyOperations(ctx context.Context, now time.Time, limit int) ([]*models.SyncOperation, error)

	// OperationsForEntity returns all queued operations for one entity id,
	// oldest first
	OperationsForEntity(ctx context.Context, entityType, entityID string) ([]*models.SyncOperation, error)

	// UpdateOperation replaces a queued operation (retry bookkeeping).
	// Returns ErrOperationNotFound if the id is unknown
	UpdateOperation(ctx context.Context, op *models.SyncOperation) error

	// RemoveOperation deletes a completed or exhausted operation
	RemoveOperation(ctx context.Context, id string) error

	// PendingCount returns the number of queued operations
	PendingCount(ctx context.Context) (int, error)
}
