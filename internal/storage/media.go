package storage

import (
	"context"

	"github.com/mkravets/offsync/internal/models"
)

// MediaIndexStorage persists the media cache index. The index is the
// authority over the cache directory contents.
type MediaIndexStorage interface {
	// SaveMediaEntry stores or updates an index entry. MediaURL is unique;
	// saving an entry with an existing URL replaces it
	SaveMediaEntry(ctx context.Context, entry *models.MediaCacheEntry) error

	// GetMediaEntry retrieves an entry by media URL.
	// Returns ErrMediaNotFound if none exists
	GetMediaEntry(ctx context.Context, mediaURL string) (*models.MediaCacheEntry, error)

	// ListMediaEntries returns all index entries
	ListMediaEntries(ctx context.Context) ([]*models.MediaCacheEntry, error)

	// RemoveMediaEntry deletes an index entry by media URL
	RemoveMediaEntry(ctx context.Context, mediaURL string) error

	// TotalMediaBytes returns the sum of FileSizeBytes over all entries
	TotalMediaBytes(ctx context.Context) (int64, error)
}
