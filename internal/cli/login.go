package cli

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/tada/internal/credential"
)

func newLoginCmd() *cobra.Command {
	var token string
	var logout bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the sync token in the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := credential.Open()
			if err != nil {
				return err
			}

			if logout {
				if err := creds.Delete(credential.SyncTokenKey); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Sync token removed.")
				return nil
			}

			if token == "" {
				err := huh.NewInput().
					Title("Sync token").
					EchoMode(huh.EchoModePassword).
					Value(&token).
					Validate(validateToken).
					Run()
				if err != nil {
					return fmt.Errorf("reading token: %w", err)
				}
			}
			if err := validateToken(token); err != nil {
				return err
			}

			if err := creds.Set(credential.SyncTokenKey, token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sync token saved.")
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "token to store (prompted when empty)")
	cmd.Flags().BoolVar(&logout, "logout", false, "remove the stored token")
	return cmd
}

func validateToken(s string) error {
	if len(s) < 8 {
		return fmt.Errorf("token looks too short")
	}
	return nil
}
