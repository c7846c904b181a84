package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
)

// SaveMediaEntry stores or updates a cache index entry keyed by media URL.
func (s *Storage) SaveMediaEntry(ctx context.Context, entry *models.MediaCacheEntry) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal media entry: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMedia).Put([]byte(entry.MediaURL), data)
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetMediaEntry retrieves an index entry by media URL.
func (s *Storage) GetMediaEntry(ctx context.Context, mediaURL string) (*models.MediaCacheEntry, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entry *models.MediaCacheEntry

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMedia).Get([]byte(mediaURL))
		if data == nil {
			return storage.ErrMediaNotFound
		}

		entry = &models.MediaCacheEntry{}
		if err := json.Unmarshal(data, entry); err != nil {
			return fmt.Errorf("failed to unmarshal media entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// ListMediaEntries returns all cache index entries.
func (s *Storage) ListMediaEntries(ctx context.Context) ([]*models.MediaCacheEntry, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entries []*models.MediaCacheEntry

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMedia).ForEach(func(k, v []byte) error {
			var entry models.MediaCacheEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to unmarshal media entry: %w", err)
			}
			entries = append(entries, &entry)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list media entries: %w", err)
	}

	return entries, nil
}

// RemoveMediaEntry deletes an index entry by media URL.
func (s *Storage) RemoveMediaEntry(ctx context.Context, mediaURL string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMedia).Delete([]byte(mediaURL))
	})
	if err != nil {
		return fmt.Errorf("delete transaction failed: %w", err)
	}

	return nil
}

// TotalMediaBytes returns the byte sum over all index entries.
func (s *Storage) TotalMediaBytes(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var total int64

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMedia).ForEach(func(k, v []byte) error {
			var entry models.MediaCacheEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to unmarshal media entry: %w", err)
			}
			total += entry.FileSizeBytes
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sum media bytes: %w", err)
	}

	return total, nil
}
