// Package storage defines the adapter contract every on-device persistence
// backend implements. The sync core is otherwise storage-agnostic: the
// backend is chosen once at construction time by configuration.
package storage

import (
	"context"

	"github.com/mkravets/offsync/internal/models"
)

// SortOrder controls list ordering.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ListOptions narrows and pages entity listings. Where matches are applied
// against the generic key-value view of the payload.
type ListOptions struct {
	Where          map[string]string
	OrderBy        string
	Order          SortOrder
	Limit          int
	Offset         int
	IncludeDeleted bool
}

// Mutation bundles the effects of one local entity write. Adapters apply
// all three parts atomically so the queue and metadata never diverge.
type Mutation struct {
	Entity    *models.Entity
	Metadata  *models.EntityMetadata
	Operation *models.SyncOperation
}

// Adapter is the uniform persistence surface. All methods are safe for
// concurrent use from multiple workers.
type Adapter interface {
	EntityStorage
	MetadataStorage
	QueueStorage
	ConflictStorage
	MediaIndexStorage
	SessionStorage

	// ApplyMutation persists the entity payload, its metadata, and the queued
	// operation in a single transaction. A nil Operation skips the queue append
	// (used when replaying an already-queued write).
	ApplyMutation(ctx context.Context, m Mutation) error

	// Close releases the underlying engine.
	Close() error
}
