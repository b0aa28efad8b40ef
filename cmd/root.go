package cmd

import (
	"github.com/Thnoxs/localy-v1/internal/logging"
	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "localy",
		Short:         "Localy: log in to Telegram and upload course folders",
		Long:          "localy drives the Telegram login and upload helper scripts, relays their progress, and offers a terminal UI and a JSON-lines bridge for other front ends.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newVersionCmd(), newProtocolCmd())

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		cmd.SetContext(logging.WithContext(cmd.Context(), app.logger))
	}

	rootCmd.AddCommand(
		newLoginCmd(app),
		newUploadCmd(app),
		newLogoutCmd(app),
		newStatusCmd(app),
		newUICmd(app),
		newBridgeCmd(app),
	)

	return rootCmd
}
