package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newListsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Print all lists in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(*configPath, true)
			if err != nil {
				return err
			}
			defer d.close()

			ctx := cmd.Context()
			all, err := d.lists.Lists(ctx)
			if err != nil {
				return err
			}
			if len(all) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No lists.")
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("#", "ID", "NAME", "OPEN", "SHARED")
			for _, l := range all {
				active, err := d.lists.ActiveItems(ctx, l.ID)
				if err != nil {
					return err
				}
				// Asks the backend and refreshes the cached flag.
				isShared, err := d.sharing.IsShared(ctx, l.ID)
				if err != nil {
					return err
				}
				shared := ""
				if isShared {
					shared = "yes"
				}
				t.Row(strconv.Itoa(l.Order), l.ID, l.Name, strconv.Itoa(len(active)), shared)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

func newItemsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "items <list-id>",
		Short: "Print the visible items of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(*configPath, true)
			if err != nil {
				return err
			}
			defer d.close()

			items, err := d.lists.VisibleItems(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No items.")
				return nil
			}
			for _, it := range items {
				mark := "[ ]"
				switch {
				case it.IsCompleted():
					mark = "[x]"
				case it.IsStarted():
					mark = "[*]"
				}
				fmt.Fprintf(out, "%s %s\n", mark, it.Text)
			}
			return nil
		},
	}
}

func newSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Hide old completed items and purge old hidden ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(*configPath, true)
			if err != nil {
				return err
			}
			defer d.close()

			hidden, err := d.sched.Sweep(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweeping: %w", err)
			}
			purged, err := d.sched.Purge(cmd.Context())
			if err != nil {
				return fmt.Errorf("purging: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "hidden %d, purged %d\n", hidden, purged)
			return nil
		},
	}
}
