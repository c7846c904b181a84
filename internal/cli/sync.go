package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle against the remote service",
		Run:   runSync,
	}

	cmd.Flags().Bool("high-priority", false, "Process High-priority operations only")
	cmd.Flags().Bool("retry-failed", false, "Re-enqueue entities parked in error status first")

	RootCmd.AddCommand(cmd)
}

func runSync(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	highOnly, _ := cmd.Flags().GetBool("high-priority")
	retryFailed, _ := cmd.Flags().GetBool("retry-failed")

	store, err := openAdapter(ctx)
	if err != nil {
		exitErr("open storage", err)
	}
	defer store.Close()

	logger := newLogger()
	eng, err := buildEngine(store, logger)
	if err != nil {
		exitErr("build engine", err)
	}

	if retryFailed {
		count, err := eng.RetryFailed(ctx)
		if err != nil {
			exitErr("retry failed entities", err)
		}
		fmt.Printf("re-enqueued %d errored entities\n", count)
	}

	if highOnly {
		err = eng.SyncHighPriority(ctx)
	} else {
		err = eng.ForceSync(ctx)
	}
	if err != nil {
		exitErr("sync", err)
	}

	session, err := eng.Status(ctx)
	if err != nil {
		exitErr("status", err)
	}
	b, _ := json.MarshalIndent(session, "", "  ")
	fmt.Println(string(b))
}
