package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved Telegram session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sup, stop := app.startSupervisor(cmd.Context())
			defer stop()

			if err := sup.Logout(cmd.Context()); err != nil {
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return err
		},
	}
}
