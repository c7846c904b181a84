package storage

import (
	"context"

	"github.com/mkravets/offsync/internal/models"
)

// ConflictStorage persists detected conflicts until they reach a terminal state.
type ConflictStorage interface {
	// SaveConflict stores or updates a conflict record
	SaveConflict(ctx context.Context, record *models.ConflictRecord) error

	// GetConflict retrieves a conflict by id.
	// Returns ErrConflictNotFound if none exists
	GetConflict(ctx context.Context, id string) (*models.ConflictRecord, error)

	// ListConflicts returns conflicts in the given status, oldest first.
	// An empty status returns all records
	ListConflicts(ctx context.Context, status models.ConflictStatus) ([]*models.ConflictRecord, error)

	// RemoveConflict deletes a conflict record
	RemoveConflict(ctx context.Context, id string) error
}
