package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest sync session, pending and conflict counts",
		Run:   runStatus,
	}

	RootCmd.AddCommand(cmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	store, err := openAdapter(ctx)
	if err != nil {
		exitErr("open storage", err)
	}
	defer store.Close()

	session, err := store.LatestSession(ctx)
	if err != nil {
		session = nil
	}

	pending, err := store.PendingCount(ctx)
	if err != nil {
		exitErr("pending count", err)
	}

	escalated, err := store.ListConflicts(ctx, "")
	if err != nil {
		exitErr("list conflicts", err)
	}

	out := map[string]any{
		"session":   session,
		"pending":   pending,
		"conflicts": len(escalated),
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
