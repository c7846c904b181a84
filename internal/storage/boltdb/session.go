package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
)

// SaveSession stores or updates a session snapshot keyed by session id.
func (s *Storage) SaveSession(ctx context.Context, session *models.SyncSession) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).Put([]byte(session.SessionID), data)
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// LatestSession returns the most recently started session snapshot.
func (s *Storage) LatestSession(ctx context.Context) (*models.SyncSession, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var latest *models.SyncSession

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).ForEach(func(k, v []byte) error {
			var session models.SyncSession
			if err := json.Unmarshal(v, &session); err != nil {
				return fmt.Errorf("failed to unmarshal session: %w", err)
			}
			if latest == nil || session.StartedAt.After(latest.StartedAt) {
				latest = &session
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	if latest == nil {
		return nil, storage.ErrSessionNotFound
	}

	return latest, nil
}
