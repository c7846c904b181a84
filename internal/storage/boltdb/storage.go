// Package boltdb implements the storage adapter contract on a single bbolt
// file. Records are JSON-encoded values in per-concern buckets; entity keys
// are "<type>/<id>" so one bucket serves all entity types.
package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/mkravets/offsync/internal/storage"
)

var (
	// bucket names, one per adapter concern
	bucketEntities  = []byte("entities")
	bucketMetadata  = []byte("metadata")
	bucketQueue     = []byte("queue")
	bucketConflicts = []byte("conflicts")
	bucketMedia     = []byte("media")
	bucketSessions  = []byte("sessions")
)

// Storage is the bbolt adapter implementation.
type Storage struct {
	db *bbolt.DB
}

var _ storage.Adapter = (*Storage)(nil)

// New opens (or creates) the database file at dbPath and prepares buckets.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database file.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) initBuckets() error {
	buckets := [][]byte{
		bucketEntities, bucketMetadata, bucketQueue,
		bucketConflicts, bucketMedia, bucketSessions,
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// ApplyMutation persists payload, metadata, and queue entry in one bbolt
// transaction. The metadata write carries compare-and-set semantics against
// the version stored before this mutation.
func (s *Storage) ApplyMutation(ctx context.Context, m storage.Mutation) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if m.Entity == nil || m.Metadata == nil {
		return fmt.Errorf("mutation requires entity and metadata")
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := putEntityTx(tx, m.Entity); err != nil {
			return err
		}
		// the mutation bumped the version by one; the stored record must
		// still hold the pre-bump version or the write lost a race
		expected := m.Metadata.Version - 1
		if err := putMetadataTx(tx, m.Metadata, expected); err != nil {
			return err
		}
		if m.Operation != nil {
			if err := putOperationTx(tx, m.Operation); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("mutation transaction failed: %w", err)
	}

	return nil
}

// entityKey builds the composite bucket key for an entity.
func entityKey(entityType, id string) []byte {
	return []byte(entityType + "/" + id)
}
