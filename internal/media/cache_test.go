package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/offsync/internal/gateway"
	"github.com/mkravets/offsync/internal/models"
	"github.com/mkravets/offsync/internal/storage"
	"github.com/mkravets/offsync/internal/storage/boltdb"
)

func setupCache(t *testing.T, gw *gateway.GatewayMock, cfg Config) (*Cache, storage.MediaIndexStorage) {
	t.Helper()

	adapter, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })

	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cache, err := NewCache(adapter, gw, cfg, logger)
	require.NoError(t, err)
	return cache, adapter
}

func staticDownload(payloads map[string][]byte) *gateway.GatewayMock {
	return &gateway.GatewayMock{
		DownloadMediaFunc: func(ctx context.Context, url string) ([]byte, error) {
			data, ok := payloads[url]
			if !ok {
				return nil, &gateway.Error{Kind: gateway.KindPermanent, StatusCode: 404, Message: "no such asset"}
			}
			return data, nil
		},
	}
}

func TestCache_MissDownloadsAndIndexes(t *testing.T) {
	ctx := context.Background()
	data := []byte("jpeg-bytes")
	gw := staticDownload(map[string][]byte{"https://cdn.example.com/a/photo.jpg": data})
	cache, store := setupCache(t, gw, Config{MaxBytes: 1 << 20})

	local, err := cache.GetURL(ctx, "https://cdn.example.com/a/photo.jpg", models.PriorityNormal)
	require.NoError(t, err)

	got, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	// filename is the URL hash plus the original extension
	assert.Equal(t, models.Checksum([]byte("https://cdn.example.com/a/photo.jpg"))+".jpg", filepath.Base(local))

	entry, err := store.GetMediaEntry(ctx, "https://cdn.example.com/a/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), entry.FileSizeBytes)
	assert.Equal(t, models.Checksum(data), entry.Checksum)
	assert.Equal(t, int64(1), entry.AccessCount)

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCache_HitBumpsAccess(t *testing.T) {
	ctx := context.Background()
	gw := staticDownload(map[string][]byte{"https://cdn.example.com/a.png": []byte("png")})
	cache, store := setupCache(t, gw, Config{MaxBytes: 1 << 20})

	first, err := cache.GetURL(ctx, "https://cdn.example.com/a.png", models.PriorityNormal)
	require.NoError(t, err)
	second, err := cache.GetURL(ctx, "https://cdn.example.com/a.png", models.PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.Len(t, gw.DownloadMediaCalls(), 1, "a hit never touches the network")

	entry, err := store.GetMediaEntry(ctx, "https://cdn.example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.AccessCount)

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCache_MissingFileForcesRedownload(t *testing.T) {
	ctx := context.Background()
	gw := staticDownload(map[string][]byte{"https://cdn.example.com/a.png": []byte("png")})
	cache, _ := setupCache(t, gw, Config{MaxBytes: 1 << 20})

	local, err := cache.GetURL(ctx, "https://cdn.example.com/a.png", models.PriorityNormal)
	require.NoError(t, err)

	// the index says cached but the file is gone; the stale entry is dropped
	require.NoError(t, os.Remove(local))

	again, err := cache.GetURL(ctx, "https://cdn.example.com/a.png", models.PriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, local, again)
	assert.Len(t, gw.DownloadMediaCalls(), 2)
}

func TestCache_SingleFlight(t *testing.T) {
	ctx := context.Background()
	var downloads atomic.Int64
	gw := &gateway.GatewayMock{
		DownloadMediaFunc: func(ctx context.Context, url string) ([]byte, error) {
			downloads.Add(1)
			time.Sleep(50 * time.Millisecond)
			return []byte("shared-bytes"), nil
		},
	}
	cache, _ := setupCache(t, gw, Config{MaxBytes: 1 << 20})

	const callers = 8
	paths := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = cache.GetURL(ctx, "https://cdn.example.com/big.bin", models.PriorityNormal)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, paths[0], paths[i])
	}
	assert.Equal(t, int64(1), downloads.Load(), "concurrent requests share one download")
}

func TestCache_ChecksumMismatchCachesNothing(t *testing.T) {
	ctx := context.Background()
	gw := staticDownload(map[string][]byte{"https://cdn.example.com/a.png": []byte("tampered")})
	cache, store := setupCache(t, gw, Config{MaxBytes: 1 << 20})

	_, err := cache.GetURL(ctx, "https://cdn.example.com/a.png", models.PriorityNormal,
		WithChecksum(models.Checksum([]byte("expected"))))
	require.ErrorIs(t, err, ErrChecksumMismatch)

	_, err = store.GetMediaEntry(ctx, "https://cdn.example.com/a.png")
	assert.ErrorIs(t, err, storage.ErrMediaNotFound)

	files, err := os.ReadDir(cache.cfg.Dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	payloads := map[string][]byte{}
	for i := 0; i < 4; i++ {
		payloads[fmt.Sprintf("https://cdn.example.com/f%d.bin", i)] = make([]byte, 100)
	}
	gw := staticDownload(payloads)
	cache, store := setupCache(t, gw, Config{MaxBytes: 250})

	var paths []string
	for i := 0; i < 3; i++ {
		url := fmt.Sprintf("https://cdn.example.com/f%d.bin", i)
		p, err := cache.GetURL(ctx, url, models.PriorityNormal)
		require.NoError(t, err)
		paths = append(paths, p)
		// distinct LastAccessed so the eviction order is deterministic
		time.Sleep(5 * time.Millisecond)
	}

	// three 100-byte files over a 250-byte budget: f0 is the oldest and goes
	_, err := store.GetMediaEntry(ctx, "https://cdn.example.com/f0.bin")
	assert.ErrorIs(t, err, storage.ErrMediaNotFound)
	_, statErr := os.Stat(paths[0])
	assert.True(t, os.IsNotExist(statErr))

	for i := 1; i < 3; i++ {
		_, err := store.GetMediaEntry(ctx, fmt.Sprintf("https://cdn.example.com/f%d.bin", i))
		assert.NoError(t, err)
	}

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Evictions)
	assert.LessOrEqual(t, stats.TotalBytes, int64(250))
}

func TestCache_ExpiredEntryRedownloads(t *testing.T) {
	ctx := context.Background()
	gw := staticDownload(map[string][]byte{"https://cdn.example.com/a.png": []byte("png")})
	cache, _ := setupCache(t, gw, Config{MaxBytes: 1 << 20})

	_, err := cache.GetURL(ctx, "https://cdn.example.com/a.png", models.PriorityNormal,
		WithTTL(time.Nanosecond))
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = cache.GetURL(ctx, "https://cdn.example.com/a.png", models.PriorityNormal)
	require.NoError(t, err)
	assert.Len(t, gw.DownloadMediaCalls(), 2, "an expired entry is a miss")
}

func TestCache_ClearCache(t *testing.T) {
	ctx := context.Background()
	gw := staticDownload(map[string][]byte{
		"https://cdn.example.com/a.png": []byte("aaa"),
		"https://cdn.example.com/b.png": []byte("bbb"),
	})
	cache, _ := setupCache(t, gw, Config{MaxBytes: 1 << 20})

	_, err := cache.GetURL(ctx, "https://cdn.example.com/a.png", models.PriorityNormal)
	require.NoError(t, err)
	_, err = cache.GetURL(ctx, "https://cdn.example.com/b.png", models.PriorityNormal)
	require.NoError(t, err)

	require.NoError(t, cache.ClearCache(ctx))

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
	assert.Zero(t, stats.TotalBytes)

	files, err := os.ReadDir(cache.cfg.Dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCache_SweepOrphans(t *testing.T) {
	ctx := context.Background()
	gw := staticDownload(map[string][]byte{"https://cdn.example.com/a.png": []byte("png")})
	cache, _ := setupCache(t, gw, Config{MaxBytes: 1 << 20})

	local, err := cache.GetURL(ctx, "https://cdn.example.com/a.png", models.PriorityNormal)
	require.NoError(t, err)

	orphan := filepath.Join(cache.cfg.Dir, "leftover.tmp")
	require.NoError(t, os.WriteFile(orphan, []byte("junk"), 0o600))

	removed, err := cache.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(orphan)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(local)
	assert.NoError(t, err, "indexed files survive the sweep")
}

func TestCache_PreloadChunks(t *testing.T) {
	ctx := context.Background()
	payloads := map[string][]byte{}
	var urls []string
	for i := 0; i < 5; i++ {
		url := fmt.Sprintf("https://cdn.example.com/p%d.bin", i)
		payloads[url] = []byte("x")
		urls = append(urls, url)
	}
	gw := staticDownload(payloads)
	cache, _ := setupCache(t, gw, Config{MaxBytes: 1 << 20, Strategy: PreloadConservative})

	require.NoError(t, cache.Preload(ctx, urls, models.PriorityLow))
	assert.Len(t, gw.DownloadMediaCalls(), 5)

	// a failing asset is skipped, the rest of the batch still lands
	require.NoError(t, cache.Preload(ctx, append(urls, "https://cdn.example.com/missing.bin"), models.PriorityLow))
	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Entries)
}

func TestCache_PreloadOnDemandIsNoOp(t *testing.T) {
	gw := &gateway.GatewayMock{}
	cache, _ := setupCache(t, gw, Config{MaxBytes: 1 << 20, Strategy: PreloadOnDemand})

	require.NoError(t, cache.Preload(context.Background(), []string{"https://cdn.example.com/a.png"}, models.PriorityLow))
	assert.Empty(t, gw.DownloadMediaCalls())
}
