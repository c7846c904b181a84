// Package media caches remote binary assets on local disk under a byte
// budget. The cache index lives in the storage adapter and is authoritative
// over the cache directory; files without an index entry are garbage.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/offsync/internal/gateway"
	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
)

// ErrChecksumMismatch is returned when downloaded bytes fail integrity
// verification. Nothing is cached in that case.
var ErrChecksumMismatch = errors.New("media checksum mismatch")

// PreloadStrategy sets how aggressively Preload fetches.
type PreloadStrategy string

const (
	PreloadAggressive   PreloadStrategy = "aggressive"
	PreloadConservative PreloadStrategy = "conservative"
	PreloadOnDemand     PreloadStrategy = "on_demand"
)

// chunkSize is the bounded download concurrency per strategy.
func (s PreloadStrategy) chunkSize() int {
	switch s {
	case PreloadAggressive:
		return 8
	case PreloadConservative:
		return 2
	default:
		return 0
	}
}

// Config tunes the cache.
type Config struct {
	// Dir is the dedicated cache directory
	Dir string
	// MaxBytes is the total size budget enforced after every write
	MaxBytes int64
	// Strategy controls Preload chunking
	Strategy PreloadStrategy
	// DefaultTTL expires entries that were stored without an explicit TTL.
	// Zero means no expiry
	DefaultTTL time.Duration
}

// DefaultConfig caches up to 512 MiB with conservative preloading.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:      dir,
		MaxBytes: 512 << 20,
		Strategy: PreloadConservative,
	}
}

// Stats is a point-in-time cache summary.
type Stats struct {
	Entries    int
	TotalBytes int64
	MaxBytes   int64
	Hits       int64
	Misses     int64
	Evictions  int64
}

// download is one in-flight fetch other callers can attach to.
type download struct {
	done chan struct{}
	path string
	err  error
}

// Cache downloads, stores, and evicts media files. Index mutations are
// serialized under mu; concurrent readers hit files directly.
type Cache struct {
	store  storage.MediaIndexStorage
	gw     gateway.Gateway
	logger *slog.Logger
	cfg    Config

	mu       sync.Mutex
	inflight map[string]*download

	hits      int64
	misses    int64
	evictions int64
}

// fetchOptions carries per-request settings.
type fetchOptions struct {
	checksum  string
	mediaType string
	ttl       time.Duration
}

// FetchOption customizes one GetURL call.
type FetchOption func(*fetchOptions)

// WithChecksum verifies the downloaded bytes against an expected hex SHA-256.
func WithChecksum(sum string) FetchOption {
	return func(o *fetchOptions) { o.checksum = sum }
}

// WithMediaType records the asset kind on the cache entry.
func WithMediaType(t string) FetchOption {
	return func(o *fetchOptions) { o.mediaType = t }
}

// WithTTL expires the entry after d, overriding the configured default.
func WithTTL(d time.Duration) FetchOption {
	return func(o *fetchOptions) { o.ttl = d }
}

// NewCache creates the cache directory if needed.
func NewCache(store storage.MediaIndexStorage, gw gateway.Gateway, cfg Config, logger *slog.Logger) (*Cache, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 512 << 20
	}
	if cfg.Strategy == "" {
		cfg.Strategy = PreloadConservative
	}
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Cache{
		store:    store,
		gw:       gw,
		logger:   logger,
		cfg:      cfg,
		inflight: make(map[string]*download),
	}, nil
}

// GetURL returns the local path for a remote asset. A present, non-empty
// cached file is a hit and records the access. Concurrent requests for the
// same URL share a single download.
func (c *Cache) GetURL(ctx context.Context, mediaURL string, priority models.Priority, opts ...FetchOption) (string, error) {
	var fo fetchOptions
	for _, opt := range opts {
		opt(&fo)
	}

	c.mu.Lock()

	if dl, ok := c.inflight[mediaURL]; ok {
		c.mu.Unlock()
		select {
		case <-dl.done:
			return dl.path, dl.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if localPath, ok := c.hitLocked(ctx, mediaURL); ok {
		c.hits++
		c.mu.Unlock()
		return localPath, nil
	}

	c.misses++
	dl := &download{done: make(chan struct{})}
	c.inflight[mediaURL] = dl
	c.mu.Unlock()

	localPath, err := c.fetch(ctx, mediaURL, priority, fo)

	c.mu.Lock()
	dl.path, dl.err = localPath, err
	delete(c.inflight, mediaURL)
	c.mu.Unlock()
	close(dl.done)

	return localPath, err
}

// hitLocked checks the index and the backing file. A stale entry whose file
// is gone or empty is dropped so the caller re-downloads. Callers hold mu.
func (c *Cache) hitLocked(ctx context.Context, mediaURL string) (string, bool) {
	entry, err := c.store.GetMediaEntry(ctx, mediaURL)
	if err != nil {
		return "", false
	}

	info, statErr := os.Stat(entry.LocalPath)
	if statErr != nil || info.Size() == 0 || entry.Expired(time.Now().UTC()) {
		_ = c.store.RemoveMediaEntry(ctx, mediaURL)
		_ = os.Remove(entry.LocalPath)
		return "", false
	}

	entry.AccessCount++
	entry.LastAccessed = time.Now().UTC()
	if err := c.store.SaveMediaEntry(ctx, entry); err != nil {
		c.logger.Warn("failed to record cache access", "media_url", mediaURL, "error", err)
	}

	return entry.LocalPath, true
}

// fetch downloads, verifies, stores, and indexes one asset, then runs an
// eviction pass.
func (c *Cache) fetch(ctx context.Context, mediaURL string, priority models.Priority, fo fetchOptions) (string, error) {
	data, err := c.gw.DownloadMedia(ctx, mediaURL)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", mediaURL, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty response for %s", mediaURL)
	}

	sum := models.Checksum(data)
	if fo.checksum != "" && fo.checksum != sum {
		return "", fmt.Errorf("%w: %s", ErrChecksumMismatch, mediaURL)
	}

	localPath := filepath.Join(c.cfg.Dir, cacheFileName(mediaURL))
	if err := os.WriteFile(localPath, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now().UTC()
	entry := &models.MediaCacheEntry{
		ID:            uuid.New().String(),
		MediaURL:      mediaURL,
		LocalPath:     localPath,
		MediaType:     fo.mediaType,
		Checksum:      sum,
		FileSizeBytes: int64(len(data)),
		Priority:      priority,
		AccessCount:   1,
		LastAccessed:  now,
		DownloadedAt:  now,
		IsSynced:      true,
	}
	ttl := fo.ttl
	if ttl == 0 {
		ttl = c.cfg.DefaultTTL
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		entry.ExpiresAt = &expires
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.SaveMediaEntry(ctx, entry); err != nil {
		_ = os.Remove(localPath)
		return "", fmt.Errorf("failed to index cache entry: %w", err)
	}

	if err := c.evictLocked(ctx); err != nil {
		c.logger.Warn("eviction pass failed", "error", err)
	}

	c.logger.Debug("media cached",
		"media_url", mediaURL, "bytes", entry.FileSizeBytes, "path", localPath)

	return localPath, nil
}

// ClearCache removes every entry and backing file.
func (c *Cache) ClearCache(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.store.ListMediaEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cache entries: %w", err)
	}

	for _, entry := range entries {
		if err := c.store.RemoveMediaEntry(ctx, entry.MediaURL); err != nil {
			return fmt.Errorf("failed to remove cache entry %s: %w", entry.MediaURL, err)
		}
		if err := os.Remove(entry.LocalPath); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("failed to remove cache file", "path", entry.LocalPath, "error", err)
		}
	}

	c.logger.Info("media cache cleared", "entries", len(entries))
	return nil
}

// Stats reports current totals and counters.
func (c *Cache) Stats(ctx context.Context) (*Stats, error) {
	entries, err := c.store.ListMediaEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	total, err := c.store.TotalMediaBytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to total cache bytes: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return &Stats{
		Entries:    len(entries),
		TotalBytes: total,
		MaxBytes:   c.cfg.MaxBytes,
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
	}, nil
}

// cacheFileName derives a deterministic filename from the URL hash plus the
// original extension, so the directory is re-creatable from the index.
func cacheFileName(mediaURL string) string {
	name := models.Checksum([]byte(mediaURL))
	if u, err := url.Parse(mediaURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" && len(ext) <= 8 {
			name += ext
		}
	}
	return name
}
