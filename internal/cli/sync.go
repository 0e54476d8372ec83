package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	tadasync "github.com/nhle/tada/internal/sync"
)

func newSyncCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync round trip and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(*configPath, true)
			if err != nil {
				return err
			}
			defer d.close()

			d.engine.Start()
			defer d.engine.Stop()

			out := cmd.OutOrStdout()
			err = d.repl.RunOnce(cmd.Context())
			switch {
			case errors.Is(err, tadasync.ErrLocalOnly):
				fmt.Fprintln(out, "Sync is not available: set sync.url and run `tada login`.")
				return nil
			case err != nil:
				fmt.Fprintf(out, "%s: sync failed\n", d.cfg.Sync.Device)
				return err
			}

			last, err := d.lists.LastSync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: synced at %s\n", d.cfg.Sync.Device, last.Local().Format(time.DateTime))
			return nil
		},
	}
}
