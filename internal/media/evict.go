package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// evictLocked enforces the byte budget: expired entries go first, then
// least-recently-used entries with an access-frequency tiebreak until the
// total is back under budget. Callers hold mu.
func (c *Cache) evictLocked(ctx context.Context) error {
	entries, err := c.store.ListMediaEntries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cache entries: %w", err)
	}

	now := time.Now().UTC()
	var total int64
	live := entries[:0]

	for _, entry := range entries {
		if entry.Expired(now) {
			if err := c.dropLocked(ctx, entry.MediaURL, entry.LocalPath); err != nil {
				return err
			}
			continue
		}
		total += entry.FileSizeBytes
		live = append(live, entry)
	}

	if total <= c.cfg.MaxBytes {
		return nil
	}

	sort.Slice(live, func(i, j int) bool {
		if !live[i].LastAccessed.Equal(live[j].LastAccessed) {
			return live[i].LastAccessed.Before(live[j].LastAccessed)
		}
		return live[i].AccessCount < live[j].AccessCount
	})

	for _, entry := range live {
		if total <= c.cfg.MaxBytes {
			break
		}
		if err := c.dropLocked(ctx, entry.MediaURL, entry.LocalPath); err != nil {
			return err
		}
		total -= entry.FileSizeBytes
	}

	return nil
}

func (c *Cache) dropLocked(ctx context.Context, mediaURL, localPath string) error {
	if err := c.store.RemoveMediaEntry(ctx, mediaURL); err != nil {
		return fmt.Errorf("failed to remove cache entry %s: %w", mediaURL, err)
	}
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("failed to remove cache file", "path", localPath, "error", err)
	}
	c.evictions++
	c.logger.Debug("cache entry evicted", "media_url", mediaURL)
	return nil
}

// SweepOrphans deletes files in the cache directory that have no index
// entry. The index is authoritative, so such files are garbage.
func (c *Cache) SweepOrphans(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.store.ListMediaEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache entries: %w", err)
	}
	indexed := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		indexed[filepath.Clean(entry.LocalPath)] = struct{}{}
	}

	files, err := os.ReadDir(c.cfg.Dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		full := filepath.Join(c.cfg.Dir, f.Name())
		if _, ok := indexed[filepath.Clean(full)]; ok {
			continue
		}
		if err := os.Remove(full); err != nil {
			c.logger.Warn("failed to remove orphan file", "path", full, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		c.logger.Info("orphan cache files removed", "count", removed)
	}
	return removed, nil
}
