package media

import (
	"context"
	"sync"

	"github.com/mkravets/offsync/internal/models"
)

// Preload warms the cache for a batch of URLs in bounded concurrent chunks.
// The chunk size follows the configured strategy; on-demand preloading is a
// no-op. Individual failures are logged and skipped so one bad asset never
// blocks the rest of the batch.
func (c *Cache) Preload(ctx context.Context, urls []string, priority models.Priority) error {
	chunk := c.cfg.Strategy.chunkSize()
	if chunk == 0 || len(urls) == 0 {
		return nil
	}

	for start := 0; start < len(urls); start += chunk {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + chunk
		if end > len(urls) {
			end = len(urls)
		}

		var wg sync.WaitGroup
		for _, mediaURL := range urls[start:end] {
			wg.Add(1)
			go func(mediaURL string) {
				defer wg.Done()
				if _, err := c.GetURL(ctx, mediaURL, priority); err != nil {
					c.logger.Warn("preload failed", "media_url", mediaURL, "error", err)
				}
			}(mediaURL)
		}
		wg.Wait()
	}

	return nil
}
