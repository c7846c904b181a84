package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mkravets/offsync/internal/media"
)

var cacheDir string

func init() {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the media cache",
	}

	cmd.PersistentFlags().StringVar(&cacheDir, "dir", "", "Cache directory (default: alongside the database)")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show cache totals",
		Run:   runCacheStats,
	}
	clear := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached file and index entry",
		Run:   runCacheClear,
	}
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Delete files with no index entry",
		Run:   runCacheSweep,
	}

	cmd.AddCommand(stats, clear, sweep)
	RootCmd.AddCommand(cmd)
}

func getCacheDir() string {
	if cacheDir != "" {
		return cacheDir
	}
	return filepath.Join(filepath.Dir(getDBPath()), "media")
}

func openCache(cmd *cobra.Command) (*media.Cache, func()) {
	ctx := cmd.Context()

	store, err := openAdapter(ctx)
	if err != nil {
		exitErr("open storage", err)
	}

	logger := newLogger()
	gw, err := newGateway(logger)
	if err != nil {
		// stats/clear/sweep never hit the network; a nil gateway is fine
		// when no server is configured
		gw = nil
	}

	cache, err := media.NewCache(store, gw, media.DefaultConfig(getCacheDir()), logger)
	if err != nil {
		store.Close()
		exitErr("open cache", err)
	}

	return cache, func() { store.Close() }
}

func runCacheStats(cmd *cobra.Command, args []string) {
	cache, closeStore := openCache(cmd)
	defer closeStore()

	stats, err := cache.Stats(cmd.Context())
	if err != nil {
		exitErr("cache stats", err)
	}

	b, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(b))
}

func runCacheClear(cmd *cobra.Command, args []string) {
	cache, closeStore := openCache(cmd)
	defer closeStore()

	if err := cache.ClearCache(cmd.Context()); err != nil {
		exitErr("cache clear", err)
	}
	fmt.Fprintln(os.Stdout, "cache cleared")
}

func runCacheSweep(cmd *cobra.Command, args []string) {
	cache, closeStore := openCache(cmd)
	defer closeStore()

	removed, err := cache.SweepOrphans(cmd.Context())
	if err != nil {
		exitErr("cache sweep", err)
	}
	fmt.Printf("removed %d orphan files\n", removed)
}
