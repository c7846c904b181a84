package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
)

// putMetadataTx writes a metadata record after checking the stored version
// against expectedVersion. expectedVersion 0 means the record must not exist.
func putMetadataTx(tx *bbolt.Tx, meta *models.EntityMetadata, expectedVersion uint64) error {
	bucket := tx.Bucket(bucketMetadata)
	key := entityKey(meta.EntityType, meta.EntityID)

	existing := bucket.Get(key)
	if existing == nil {
		if expectedVersion != 0 {
			return storage.ErrVersionMismatch
		}
	} else {
		var current models.EntityMetadata
		if err := json.Unmarshal(existing, &current); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		if current.Version != expectedVersion {
			return storage.ErrVersionMismatch
		}
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := bucket.Put(key, data); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

// GetMetadata retrieves the metadata record for (type, id).
func (s *Storage) GetMetadata(ctx context.Context, entityType, id string) (*models.EntityMetadata, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var meta *models.EntityMetadata

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMetadata).Get(entityKey(entityType, id))
		if data == nil {
			return storage.ErrMetadataNotFound
		}

		meta = &models.EntityMetadata{}
		if err := json.Unmarshal(data, meta); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return meta, nil
}

// SetMetadata stores a metadata record with compare-and-set semantics.
func (s *Storage) SetMetadata(ctx context.Context, meta *models.EntityMetadata, expectedVersion uint64) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return putMetadataTx(tx, meta, expectedVersion)
	})
}

// ListMetadataByStatus returns metadata records in the given status.
func (s *Storage) ListMetadataByStatus(ctx context.Context, status models.SyncStatus) ([]*models.EntityMetadata, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var records []*models.EntityMetadata

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMetadata).ForEach(func(k, v []byte) error {
			var meta models.EntityMetadata
			if err := json.Unmarshal(v, &meta); err != nil {
				return fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			if meta.SyncStatus == status {
				records = append(records, &meta)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	return records, nil
}
