package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
)

const operationColumns = `
	id, entity_type, entity_id, operation, priority, payload,
	base_version, retry_count, max_retries, next_retry_at, created_at, last_error`

func appendOperation(ctx context.Context, q querier, op *models.SyncOperation) error {
	query := `
		INSERT INTO sync_queue (` + operationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := q.ExecContext(ctx, query,
		op.ID, op.EntityType, op.EntityID, string(op.Operation), int(op.Priority),
		op.Payload, op.BaseVersion, op.RetryCount, op.MaxRetries,
		toMillis(op.NextRetryAt), toMillis(op.CreatedAt), op.LastError)
	if err != nil {
		return fmt.Errorf("failed to append operation: %w", err)
	}
	return nil
}

// AppendOperation adds an operation to the durable queue.
func (s *Storage) AppendOperation(ctx context.Context, op *models.SyncOperation) error {
	return appendOperation(ctx, s.db, op)
}

func scanOperations(ctx context.Context, q querier, query string, args ...any) ([]*models.SyncOperation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var ops []*models.SyncOperation

	for rows.Next() {
		op := &models.SyncOperation{}
		var kind string
		var priority int
		var nextRetryAt, createdAt int64
		if err := rows.Scan(&op.ID, &op.EntityType, &op.EntityID, &kind, &priority,
			&op.Payload, &op.BaseVersion, &op.RetryCount, &op.MaxRetries,
			&nextRetryAt, &createdAt, &op.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		op.Operation = models.OperationKind(kind)
		op.Priority = models.Priority(priority)
		op.NextRetryAt = fromMillis(nextRetryAt)
		op.CreatedAt = fromMillis(createdAt)
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return ops, nil
}

// ReadyOperations returns up to limit dispatchable operations ordered by
// (priority, created_at).
func (s *Storage) ReadyOperations(ctx context.Context, now time.Time, limit int) ([]*models.SyncOperation, error) {
	query := `
		SELECT ` + operationColumns + `
		FROM sync_queue
		WHERE next_retry_at <= ?
		ORDER BY priority ASC, created_at ASC`
	args := []any{toMillis(now)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	return scanOperations(ctx, s.db, query, args...)
}

// OperationsForEntity returns queued operations for one entity, oldest first.
func (s *Storage) OperationsForEntity(ctx context.Context, entityType, entityID string) ([]*models.SyncOperation, error) {
	query := `
		SELECT ` + operationColumns + `
		FROM sync_queue
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at ASC`

	return scanOperations(ctx, s.db, query, entityType, entityID)
}

// UpdateOperation replaces a queued operation.
func (s *Storage) UpdateOperation(ctx context.Context, op *models.SyncOperation) error {
	query := `
		UPDATE sync_queue SET
			entity_type = ?, entity_id = ?, operation = ?, priority = ?, payload = ?,
			base_version = ?, retry_count = ?, max_retries = ?, next_retry_at = ?, last_error = ?
		WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query,
		op.EntityType, op.EntityID, string(op.Operation), int(op.Priority), op.Payload,
		op.BaseVersion, op.RetryCount, op.MaxRetries, toMillis(op.NextRetryAt), op.LastError,
		op.ID)
	if err != nil {
		return fmt.Errorf("failed to update operation: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrOperationNotFound
	}

	return nil
}

// RemoveOperation deletes an operation from the queue.
func (s *Storage) RemoveOperation(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove operation: %w", err)
	}
	return nil
}

// PendingCount returns the number of queued operations.
func (s *Storage) PendingCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count operations: %w", err)
	}
	return count, nil
}
