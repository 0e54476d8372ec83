package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/tada/internal/share"
)

func newShareCmd(configPath *string) *cobra.Command {
	var (
		inviteTo string
		from     string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "share <list-id>",
		Short: "Share a list and optionally write an invitation email",
		Long: `share creates the share record of a list on the sync backend and prints
its link. With --invite-to it also writes an RFC 5322 invitation that can
be handed to any mail client or sendmail.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := openDeps(*configPath, true)
			if err != nil {
				return err
			}
			defer d.close()

			ctx := cmd.Context()
			l, err := d.lists.List(ctx, args[0])
			if err != nil {
				return fmt.Errorf("finding list: %w", err)
			}
			h, err := d.sharing.Share(ctx, l.ID)
			if err != nil {
				return err
			}
			if inviteTo == "" {
				fmt.Fprintln(cmd.OutOrStdout(), h.URL)
				return nil
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating invitation file: %w", err)
				}
				defer f.Close()
				w = f
			}

			if err := share.ComposeInvite(w, share.Invite{
				From:     from,
				To:       inviteTo,
				ListName: l.Name,
				URL:      h.URL,
			}); err != nil {
				return fmt.Errorf("writing invitation: %w", err)
			}
			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\ninvitation written to %s\n", h.URL, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inviteTo, "invite-to", "", "recipient addresses for an invitation email")
	cmd.Flags().StringVar(&from, "from", "", "sender address of the invitation")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the invitation to this file instead of stdout")
	cmd.MarkFlagsRequiredTogether("invite-to", "from")
	return cmd
}
