package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
)

const mediaColumns = `
	media_url, id, local_path, media_type, file_size_bytes, priority,
	access_count, last_accessed, downloaded_at, expires_at, checksum, is_synced`

// SaveMediaEntry stores or updates a cache index entry keyed by media URL.
func (s *Storage) SaveMediaEntry(ctx context.Context, entry *models.MediaCacheEntry) error {
	query := `
		INSERT INTO media_cache (` + mediaColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (media_url) DO UPDATE SET
			local_path = excluded.local_path,
			media_type = excluded.media_type,
			file_size_bytes = excluded.file_size_bytes,
			priority = excluded.priority,
			access_count = excluded.access_count,
			last_accessed = excluded.last_accessed,
			downloaded_at = excluded.downloaded_at,
			expires_at = excluded.expires_at,
			checksum = excluded.checksum,
			is_synced = excluded.is_synced`

	_, err := s.db.ExecContext(ctx, query,
		entry.MediaURL, entry.ID, entry.LocalPath, entry.MediaType,
		entry.FileSizeBytes, int(entry.Priority), entry.AccessCount,
		toMillis(entry.LastAccessed), toMillis(entry.DownloadedAt),
		toMillisPtr(entry.ExpiresAt), entry.Checksum, entry.IsSynced)
	if err != nil {
		return fmt.Errorf("failed to save media entry: %w", err)
	}
	return nil
}

func scanMediaRow(row rowScanner) (*models.MediaCacheEntry, error) {
	entry := &models.MediaCacheEntry{}
	var priority int
	var lastAccessed, downloadedAt int64
	var expiresAt sql.NullInt64

	err := row.Scan(&entry.MediaURL, &entry.ID, &entry.LocalPath, &entry.MediaType,
		&entry.FileSizeBytes, &priority, &entry.AccessCount,
		&lastAccessed, &downloadedAt, &expiresAt, &entry.Checksum, &entry.IsSynced)
	if err != nil {
		return nil, err
	}

	entry.Priority = models.Priority(priority)
	entry.LastAccessed = fromMillis(lastAccessed)
	entry.DownloadedAt = fromMillis(downloadedAt)
	entry.ExpiresAt = fromMillisPtr(expiresAt)

	return entry, nil
}

// GetMediaEntry retrieves an index entry by media URL.
func (s *Storage) GetMediaEntry(ctx context.Context, mediaURL string) (*models.MediaCacheEntry, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_cache WHERE media_url = ?`

	entry, err := scanMediaRow(s.db.QueryRowContext(ctx, query, mediaURL))
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to get media entry: %w", err)
	}

	return entry, nil
}

// ListMediaEntries returns all cache index entries.
func (s *Storage) ListMediaEntries(ctx context.Context) ([]*models.MediaCacheEntry, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_cache ORDER BY last_accessed ASC, access_count ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list media entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.MediaCacheEntry

	for rows.Next() {
		entry, err := scanMediaRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return entries, nil
}

// RemoveMediaEntry deletes an index entry by media URL.
func (s *Storage) RemoveMediaEntry(ctx context.Context, mediaURL string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM media_cache WHERE media_url = ?`, mediaURL); err != nil {
		return fmt.Errorf("failed to remove media entry: %w", err)
	}
	return nil
}

// TotalMediaBytes returns the byte sum over all index entries.
func (s *Storage) TotalMediaBytes(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(file_size_bytes), 0) FROM media_cache`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum media bytes: %w", err)
	}
	return total, nil
}
