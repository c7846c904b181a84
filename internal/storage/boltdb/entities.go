package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
)

func putEntityTx(tx *bbolt.Tx, entity *models.Entity) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}
	bucket := tx.Bucket(bucketEntities)
	if err := bucket.Put(entityKey(entity.EntityType, entity.ID), data); err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}
	return nil
}

// SaveEntity stores or replaces a payload.
func (s *Storage) SaveEntity(ctx context.Context, entity *models.Entity) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return putEntityTx(tx, entity)
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetEntity retrieves a payload by (type, id).
func (s *Storage) GetEntity(ctx context.Context, entityType, id string) (*models.Entity, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entity *models.Entity

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEntities).Get(entityKey(entityType, id))
		if data == nil {
			return storage.ErrEntityNotFound
		}

		entity = &models.Entity{}
		if err := json.Unmarshal(data, entity); err != nil {
			return fmt.Errorf("failed to unmarshal entity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entity, nil
}

// ListEntities returns payloads of one type filtered and paged by opts.
func (s *Storage) ListEntities(ctx context.Context, entityType string, opts storage.ListOptions) ([]*models.Entity, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	prefix := []byte(entityType + "/")

	var entities []*models.Entity

	err := s.db.View(func(tx *bbolt.Tx) error {
		entBucket := tx.Bucket(bucketEntities)
		metaBucket := tx.Bucket(bucketMetadata)

		cursor := entBucket.Cursor()
		for k, v := cursor.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = cursor.Next() {
			var entity models.Entity
			if err := json.Unmarshal(v, &entity); err != nil {
				return fmt.Errorf("failed to unmarshal entity: %w", err)
			}

			if !opts.IncludeDeleted {
				if metaData := metaBucket.Get(k); metaData != nil {
					var meta models.EntityMetadata
					if err := json.Unmarshal(metaData, &meta); err != nil {
						return fmt.Errorf("failed to unmarshal metadata: %w", err)
					}
					if meta.IsDeleted {
						continue
					}
				}
			}

			if len(opts.Where) > 0 && !matchesWhere(entity.Payload, opts.Where) {
				continue
			}

			entities = append(entities, &entity)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	sortEntities(entities, opts)

	return pageEntities(entities, opts), nil
}

// RemoveEntity hard-deletes a payload and its metadata.
func (s *Storage) RemoveEntity(ctx context.Context, entityType, id string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	key := entityKey(entityType, id)

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketEntities).Delete(key); err != nil {
			return fmt.Errorf("failed to delete entity: %w", err)
		}
		if err := tx.Bucket(bucketMetadata).Delete(key); err != nil {
			return fmt.Errorf("failed to delete metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete transaction failed: %w", err)
	}

	return nil
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}

// matchesWhere applies equality filters against the generic key-value view
// of a JSON payload. Non-JSON payloads never match a filter.
func matchesWhere(payload []byte, where map[string]string) bool {
	var view map[string]any
	if err := json.Unmarshal(payload, &view); err != nil {
		return false
	}
	for field, want := range where {
		got, ok := view[field]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

// sortEntities orders by a payload field when OrderBy is set; the natural
// key order (type/id) is kept otherwise.
func sortEntities(entities []*models.Entity, opts storage.ListOptions) {
	if opts.OrderBy == "" {
		return
	}

	fieldOf := func(e *models.Entity) string {
		var view map[string]any
		if err := json.Unmarshal(e.Payload, &view); err != nil {
			return ""
		}
		return fmt.Sprint(view[opts.OrderBy])
	}

	sort.SliceStable(entities, func(i, j int) bool {
		a, b := fieldOf(entities[i]), fieldOf(entities[j])
		if opts.Order == storage.OrderDesc {
			return a > b
		}
		return a < b
	})
}

func pageEntities(entities []*models.Entity, opts storage.ListOptions) []*models.Entity {
	if opts.Offset > 0 {
		if opts.Offset >= len(entities) {
			return nil
		}
		entities = entities[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(entities) {
		entities = entities[:opts.Limit]
	}
	return entities
}
