package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
)

func putOperationTx(tx *bbolt.Tx, op *models.SyncOperation) error {
	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal operation: %w", err)
	}
	if err := tx.Bucket(bucketQueue).Put([]byte(op.ID), data); err != nil {
		return fmt.Errorf("failed to save operation: %w", err)
	}
	return nil
}

// AppendOperation adds an operation to the durable queue.
func (s *Storage) AppendOperation(ctx context.Context, op *models.SyncOperation) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return putOperationTx(tx, op)
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// ReadyOperations returns up to limit dispatchable operations ordered by
// (priority, created_at).
func (s *Storage) ReadyOperations(ctx context.Context, now time.Time, limit int) ([]*models.SyncOperation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var ops []*models.SyncOperation

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketQueue).ForEach(func(k, v []byte) error {
			var op models.SyncOperation
			if err := json.Unmarshal(v, &op); err != nil {
				return fmt.Errorf("failed to unmarshal operation: %w", err)
			}
			if op.Ready(now) {
				ops = append(ops, &op)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list ready operations: %w", err)
	}

	sortOperations(ops)

	if limit > 0 && limit < len(ops) {
		ops = ops[:limit]
	}

	return ops, nil
}

// OperationsForEntity returns queued operations for one entity, oldest first.
func (s *Storage) OperationsForEntity(ctx context.Context, entityType, entityID string) ([]*models.SyncOperation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var ops []*models.SyncOperation

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketQueue).ForEach(func(k, v []byte) error {
			var op models.SyncOperation
			if err := json.Unmarshal(v, &op); err != nil {
				return fmt.Errorf("failed to unmarshal operation: %w", err)
			}
			if op.EntityType == entityType && op.EntityID == entityID {
				ops = append(ops, &op)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}

	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].CreatedAt.Before(ops[j].CreatedAt)
	})

	return ops, nil
}

// UpdateOperation replaces a queued operation.
func (s *Storage) UpdateOperation(ctx context.Context, op *models.SyncOperation) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket.Get([]byte(op.ID)) == nil {
			return storage.ErrOperationNotFound
		}
		return putOperationTx(tx, op)
	})
	if err != nil {
		return err
	}

	return nil
}

// RemoveOperation deletes an operation from the queue.
func (s *Storage) RemoveOperation(ctx context.Context, id string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketQueue).Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("delete transaction failed: %w", err)
	}

	return nil
}

// PendingCount returns the number of queued operations.
func (s *Storage) PendingCount(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var count int

	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket(bucketQueue).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count operations: %w", err)
	}

	return count, nil
}

// sortOperations orders by priority then creation time, the drain order.
func sortOperations(ops []*models.SyncOperation) {
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Priority != ops[j].Priority {
			return ops[i].Priority < ops[j].Priority
		}
		return ops[i].CreatedAt.Before(ops[j].CreatedAt)
	})
}
