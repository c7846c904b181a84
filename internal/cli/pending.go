package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List queued sync operations",
		Run:   runPending,
	}

	cmd.Flags().IntP("limit", "l", 100, "Maximum operations to show")
	cmd.Flags().Bool("ready", false, "Only operations ready to transmit now")

	RootCmd.AddCommand(cmd)
}

func runPending(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")
	readyOnly, _ := cmd.Flags().GetBool("ready")

	store, err := openAdapter(ctx)
	if err != nil {
		exitErr("open storage", err)
	}
	defer store.Close()

	// a far-future cutoff includes operations backed off into the future
	cutoff := time.Now().UTC()
	if !readyOnly {
		cutoff = cutoff.Add(100 * 365 * 24 * time.Hour)
	}

	ops, err := store.ReadyOperations(ctx, cutoff, limit)
	if err != nil {
		exitErr("list operations", err)
	}

	b, _ := json.MarshalIndent(ops, "", "  ")
	fmt.Println(string(b))
}
