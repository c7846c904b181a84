// Package cli implements the offsync inspection and control commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mkravets/offsync/internal/conflict"
	"github.com/mkravets/offsync/internal/engine"
	"github.com/mkravets/offsync/internal/events"
	"github.com/mkravets/offsync/internal/gateway"
	"github.com/mkravets/offsync/internal/retry"
	"github.com/mkravets/offsync/internal/storage"
	"github.com/mkravets/offsync/internal/storage/boltdb"
	"github.com/mkravets/offsync/internal/storage/sqlite"
)

var (
	dbPath    string
	backend   string
	serverURL string
	authToken string
	verbose   bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "offsync",
	Short: "Offline-first sync core",
	Long:  "Inspect and drive the offline-first synchronization core: local entities, the sync queue, conflicts, and the media cache.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $OFFSYNC_DB or ~/.offsync/offsync.db)")
	RootCmd.PersistentFlags().StringVarP(&backend, "backend", "b", "bolt", "Storage backend: bolt or sqlite")
	RootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", os.Getenv("OFFSYNC_SERVER"), "Remote sync service base URL")
	RootCmd.PersistentFlags().StringVarP(&authToken, "token", "t", os.Getenv("OFFSYNC_TOKEN"), "Bearer token for the remote service")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("OFFSYNC_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".offsync", "offsync.db")
}

func openAdapter(ctx context.Context) (storage.Adapter, error) {
	path := getDBPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	switch backend {
	case "bolt":
		return boltdb.New(ctx, path)
	case "sqlite":
		return sqlite.New(ctx, path)
	default:
		return nil, fmt.Errorf("unknown backend %q (want bolt or sqlite)", backend)
	}
}

func newGateway(logger *slog.Logger) (gateway.Gateway, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("remote server URL is required (--server or $OFFSYNC_SERVER)")
	}
	return gateway.NewClient(serverURL, gateway.StaticTokenProvider(authToken), logger), nil
}

// buildEngine wires a full engine over an open adapter for one-shot runs.
func buildEngine(store storage.Adapter, logger *slog.Logger) (*engine.Engine, error) {
	gw, err := newGateway(logger)
	if err != nil {
		return nil, err
	}

	resolver := conflict.NewResolver(store, conflict.DefaultConfig(), logger)
	policy := retry.NewPolicy(retry.DefaultConfig())
	breakers := retry.NewBreakerSet(retry.DefaultBreakerConfig())
	bus := events.NewBus()

	return engine.New(store, gw, resolver, policy, breakers, bus, engine.DefaultConfig(), logger), nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
