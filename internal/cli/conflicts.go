package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkravets/offsync/internal/models"
)

func init() {
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List conflict records",
		Run:   runConflicts,
	}

	cmd.Flags().String("status", "", "Filter by status: pending, resolved, escalated")

	RootCmd.AddCommand(cmd)
}

func runConflicts(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetString("status")

	store, err := openAdapter(ctx)
	if err != nil {
		exitErr("open storage", err)
	}
	defer store.Close()

	records, err := store.ListConflicts(ctx, models.ConflictStatus(status))
	if err != nil {
		exitErr("list conflicts", err)
	}

	b, _ := json.MarshalIndent(records, "", "  ")
	fmt.Println(string(b))
}
