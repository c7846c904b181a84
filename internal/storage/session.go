package storage

import (
	"context"

	"github.com/mkravets/offsync/internal/models"
)

// SessionStorage persists sync session snapshots. Only the latest session
// matters to callers; history is kept for inspection.
type SessionStorage interface {
	// SaveSession stores or updates a session snapshot
	SaveSession(ctx context.Context, session *models.SyncSession) error

	// LatestSession returns the most recently started session.
	// Returns ErrSessionNotFound if no sync has ever run
	LatestSession(ctx context.Context) (*models.SyncSession, error)
}
