package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkravets/offsync/internal/conflict"
	"github.com/mkravets/offsync/internal/models"
)

func init() {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve an escalated conflict manually",
		Run:   runResolve,
	}

	cmd.Flags().String("id", "", "Conflict id (required)")
	cmd.Flags().String("choice", "", "Resolution: local, remote, or custom (required)")
	cmd.Flags().String("payload", "", "File holding the custom payload (required with --choice custom)")

	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("choice")

	RootCmd.AddCommand(cmd)
}

func runResolve(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	id, _ := cmd.Flags().GetString("id")
	choice, _ := cmd.Flags().GetString("choice")
	payloadPath, _ := cmd.Flags().GetString("payload")

	var custom []byte
	if models.ManualChoice(choice) == models.ChoiceCustom {
		if payloadPath == "" {
			exitErr("resolve", fmt.Errorf("--payload is required with --choice custom"))
		}
		data, err := os.ReadFile(payloadPath)
		if err != nil {
			exitErr("read payload", err)
		}
		custom = data
	}

	store, err := openAdapter(ctx)
	if err != nil {
		exitErr("open storage", err)
	}
	defer store.Close()

	logger := newLogger()
	resolver := conflict.NewResolver(store, conflict.DefaultConfig(), logger)

	if err := resolver.ResolveManually(ctx, id, models.ManualChoice(choice), custom); err != nil {
		exitErr("resolve", err)
	}

	fmt.Printf("conflict %s resolved (%s)\n", id, choice)
}
