package storage

import (
	"context"

	"github.com/mkravets/offsync/internal/models"
)

// MetadataStorage persists per-entity sync bookkeeping.
type MetadataStorage interface {
	// GetMetadata retrieves the metadata record for (type, id).
	// Returns ErrMetadataNotFound if none exists
	GetMetadata(ctx context.Context, entityType, id string) (*models.EntityMetadata, error)

	// SetMetadata stores a metadata record with compare-and-set semantics:
	// the write succeeds only if the stored version equals expectedVersion.
	// Pass 0 for a record that must not exist yet.
	// Returns ErrVersionMismatch when the check fails
	SetMetadata(ctx context.Context, meta *models.EntityMetadata, expectedVersion uint64) error

	// ListMetadataByStatus returns metadata records in the given status,
	// across all entity types. Used to surface error/conflict entities
	ListMetadataByStatus(ctx context.Context, status models.SyncStatus) ([]*models.EntityMetadata, error)
}
