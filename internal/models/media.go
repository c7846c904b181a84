package models

import "time"

// MediaCacheEntry is the index record for one cached binary asset.
// The index is authoritative over the cache directory: files without an
// index entry are garbage and may be swept.
type MediaCacheEntry struct {
	LastAccessed  time.Time  `json:"last_accessed"`
	DownloadedAt  time.Time  `json:"downloaded_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	ID            string     `json:"id"`
	MediaURL      string     `json:"media_url"`
	LocalPath     string     `json:"local_path"`
	MediaType     string     `json:"media_type"`
	Checksum      string     `json:"checksum"`
	FileSizeBytes int64      `json:"file_size_bytes"`
	AccessCount   int64      `json:"access_count"`
	Priority      Priority   `json:"priority"`
	IsSynced      bool       `json:"is_synced"`
}

// Expired reports whether the entry has passed its expiry, if any.
func (e *MediaCacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}
