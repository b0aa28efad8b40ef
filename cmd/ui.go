package cmd

import (
	"context"

	"github.com/Thnoxs/localy-v1/internal/adapters/render/tui"
	"github.com/spf13/cobra"
)

func newUICmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the terminal UI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sup, stop := app.startSupervisor(ctx)
			defer stop()

			app.watchSession(ctx, sup)

			return tui.Run(ctx, sup, tui.Options{
				LoggedIn: sup.HasSession(),
				Profile:  sup.Profile(ctx),
			}, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
