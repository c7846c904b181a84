package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
)

const conflictColumns = `
	id, entity_type, entity_id, local_version, remote_version,
	local_data, remote_data, resolved_data, strategy, status, detected_at, resolved_at`

// SaveConflict stores or updates a conflict record.
func (s *Storage) SaveConflict(ctx context.Context, record *models.ConflictRecord) error {
	query := `
		INSERT INTO conflicts (` + conflictColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			resolved_data = excluded.resolved_data,
			strategy = excluded.strategy,
			status = excluded.status,
			resolved_at = excluded.resolved_at`

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.EntityType, record.EntityID,
		record.LocalVersion, record.RemoteVersion,
		record.LocalData, record.RemoteData, record.ResolvedData,
		string(record.Strategy), string(record.Status),
		toMillis(record.DetectedAt), toMillisPtr(record.ResolvedAt))
	if err != nil {
		return fmt.Errorf("failed to save conflict: %w", err)
	}
	return nil
}

func scanConflicts(ctx context.Context, q querier, query string, args ...any) ([]*models.ConflictRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conflicts: %w", err)
	}
	defer rows.Close()

	var records []*models.ConflictRecord

	for rows.Next() {
		record, err := scanConflictRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConflictRow(row rowScanner) (*models.ConflictRecord, error) {
	record := &models.ConflictRecord{}
	var strategy, status string
	var detectedAt int64
	var resolvedAt sql.NullInt64

	err := row.Scan(&record.ID, &record.EntityType, &record.EntityID,
		&record.LocalVersion, &record.RemoteVersion,
		&record.LocalData, &record.RemoteData, &record.ResolvedData,
		&strategy, &status, &detectedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	record.Strategy = models.ResolutionStrategy(strategy)
	record.Status = models.ConflictStatus(status)
	record.DetectedAt = fromMillis(detectedAt)
	record.ResolvedAt = fromMillisPtr(resolvedAt)

	return record, nil
}

// GetConflict retrieves a conflict record by id.
func (s *Storage) GetConflict(ctx context.Context, id string) (*models.ConflictRecord, error) {
	query := `SELECT ` + conflictColumns + ` FROM conflicts WHERE id = ?`

	record, err := scanConflictRow(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrConflictNotFound
		}
		return nil, fmt.Errorf("failed to get conflict: %w", err)
	}

	return record, nil
}

// ListConflicts returns conflicts in the given status, oldest first.
// An empty status returns all records.
func (s *Storage) ListConflicts(ctx context.Context, status models.ConflictStatus) ([]*models.ConflictRecord, error) {
	if status == "" {
		return scanConflicts(ctx, s.db,
			`SELECT `+conflictColumns+` FROM conflicts ORDER BY detected_at ASC`)
	}
	return scanConflicts(ctx, s.db,
		`SELECT `+conflictColumns+` FROM conflicts WHERE status = ? ORDER BY detected_at ASC`,
		string(status))
}

// RemoveConflict deletes a conflict record.
func (s *Storage) RemoveConflict(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conflicts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove conflict: %w", err)
	}
	return nil
}
