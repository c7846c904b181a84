package sqlite

import (
	"context"
	"fmt"

	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
)

func setMetadata(ctx context.Context, q querier, meta *models.EntityMetadata, expectedVersion uint64) error {
	var current uint64
	err := q.QueryRowContext(ctx,
		`SELECT version FROM entity_metadata WHERE entity_type = ? AND entity_id = ?`,
		meta.EntityType, meta.EntityID).Scan(&current)
	switch {
	case isNoRows(err):
		if expectedVersion != 0 {
			return storage.ErrVersionMismatch
		}
	case err != nil:
		return fmt.Errorf("failed to read current version: %w", err)
	default:
		if current != expectedVersion {
			return storage.ErrVersionMismatch
		}
	}

	query := `
		INSERT INTO entity_metadata
			(entity_type, entity_id, version, last_modified, checksum, is_deleted, sync_status, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_type, entity_id) DO UPDATE SET
			version = excluded.version,
			last_modified = excluded.last_modified,
			checksum = excluded.checksum,
			is_deleted = excluded.is_deleted,
			sync_status = excluded.sync_status,
			last_error = excluded.last_error`

	_, err = q.ExecContext(ctx, query,
		meta.EntityType, meta.EntityID, meta.Version, toMillis(meta.LastModified),
		meta.Checksum, meta.IsDeleted, string(meta.SyncStatus), meta.LastError)
	if err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

// GetMetadata retrieves the metadata record for (type, id).
func (s *Storage) GetMetadata(ctx context.Context, entityType, id string) (*models.EntityMetadata, error) {
	query := `
		SELECT version, last_modified, checksum, is_deleted, sync_status, last_error
		FROM entity_metadata WHERE entity_type = ? AND entity_id = ?`

	meta := &models.EntityMetadata{EntityType: entityType, EntityID: id}

	var lastModified int64
	var status string

	err := s.db.QueryRowContext(ctx, query, entityType, id).Scan(
		&meta.Version, &lastModified, &meta.Checksum, &meta.IsDeleted, &status, &meta.LastError)
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrMetadataNotFound
		}
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}

	meta.LastModified = fromMillis(lastModified)
	meta.SyncStatus = models.SyncStatus(status)

	return meta, nil
}

// SetMetadata stores a metadata record with compare-and-set semantics.
// The version check and the write share one transaction; a concurrent
// ApplyMutation cannot commit between them.
func (s *Storage) SetMetadata(ctx context.Context, meta *models.EntityMetadata, expectedVersion uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := setMetadata(ctx, tx, meta, expectedVersion); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metadata: %w", err)
	}
	return nil
}

// ListMetadataByStatus returns metadata records in the given status.
func (s *Storage) ListMetadataByStatus(ctx context.Context, status models.SyncStatus) ([]*models.EntityMetadata, error) {
	query := `
		SELECT entity_type, entity_id, version, last_modified, checksum, is_deleted, sync_status, last_error
		FROM entity_metadata WHERE sync_status = ?
		ORDER BY entity_type, entity_id`

	rows, err := s.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}
	defer rows.Close()

	var records []*models.EntityMetadata

	for rows.Next() {
		meta := &models.EntityMetadata{}
		var lastModified int64
		var st string
		if err := rows.Scan(&meta.EntityType, &meta.EntityID, &meta.Version,
			&lastModified, &meta.Checksum, &meta.IsDeleted, &st, &meta.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.LastModified = fromMillis(lastModified)
		meta.SyncStatus = models.SyncStatus(st)
		records = append(records, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return records, nil
}
