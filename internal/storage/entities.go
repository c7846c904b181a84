package storage

import (
	"context"

	"github.com/mkravets/offsync/internal/models"
)

// EntityStorage persists opaque entity payloads keyed by (type, id).
type EntityStorage interface {
	// SaveEntity stores or replaces a payload
	SaveEntity(ctx context.Context, entity *models.Entity) error

	// GetEntity retrieves a payload.
	// Returns ErrEntityNotFound if no payload exists
	GetEntity(ctx context.Context, entityType, id string) (*models.Entity, error)

	// ListEntities returns payloads of one type, filtered and paged by opts.
	// Soft-deleted entities are excluded unless opts.IncludeDeleted is set
	ListEntities(ctx context.Context, entityType string, opts ListOptions) ([]*models.Entity, error)

	// RemoveEntity hard-deletes a payload and its metadata. Used only after
	// the remote has confirmed a delete
	RemoveEntity(ctx context.Context, entityType, id string) error
}
