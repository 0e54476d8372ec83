package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/tada/internal/model"
)

// NewRootCommand builds the tada command tree. Running it without a
// subcommand opens the terminal UI.
func NewRootCommand(version string) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "tada",
		Short: "Ordered task lists with background sync",
		Long: `tada keeps named lists of ordered items on this machine and, when a
sync backend is configured, replicates them to your other devices.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, configPath)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "path to config file")

	root.AddCommand(
		newListsCmd(&configPath),
		newItemsCmd(&configPath),
		newSweepCmd(&configPath),
		newSyncCmd(&configPath),
		newShareCmd(&configPath),
		newServeCmd(&configPath),
		newLoginCmd(),
	)
	return root
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
