package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
)

// SaveSession stores or updates a session snapshot.
func (s *Storage) SaveSession(ctx context.Context, session *models.SyncSession) error {
	query := `
		INSERT INTO sync_sessions
			(session_id, status, total_operations, completed_operations,
			 failed_operations, started_at, last_activity, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			status = excluded.status,
			total_operations = excluded.total_operations,
			completed_operations = excluded.completed_operations,
			failed_operations = excluded.failed_operations,
			last_activity = excluded.last_activity,
			completed_at = excluded.completed_at`

	_, err := s.db.ExecContext(ctx, query,
		session.SessionID, string(session.Status),
		session.TotalOperations, session.CompletedOperations, session.FailedOperations,
		toMillis(session.StartedAt), toMillis(session.LastActivity),
		toMillisPtr(session.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LatestSession returns the most recently started session snapshot.
func (s *Storage) LatestSession(ctx context.Context) (*models.SyncSession, error) {
	query := `
		SELECT session_id, status, total_operations, completed_operations,
		       failed_operations, started_at, last_activity, completed_at
		FROM sync_sessions
		ORDER BY started_at DESC
		LIMIT 1`

	session := &models.SyncSession{}
	var status string
	var startedAt, lastActivity int64
	var completedAt sql.NullInt64

	err := s.db.QueryRowContext(ctx, query).Scan(
		&session.SessionID, &status,
		&session.TotalOperations, &session.CompletedOperations, &session.FailedOperations,
		&startedAt, &lastActivity, &completedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get latest session: %w", err)
	}

	session.Status = models.SessionStatus(status)
	session.StartedAt = fromMillis(startedAt)
	session.LastActivity = fromMillis(lastActivity)
	session.CompletedAt = fromMillisPtr(completedAt)

	return session, nil
}
