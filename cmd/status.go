package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/Thnoxs/localy-v1/internal/domain"
	"github.com/spf13/cobra"
)

type statusOutput struct {
	LoggedIn    bool                 `json:"loggedIn"`
	SessionPath string               `json:"sessionPath"`
	InstallRoot string               `json:"installRoot"`
	Profile     domain.UploadProfile `json:"profile"`
}

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a Telegram session is saved",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sup, stop := app.startSupervisor(cmd.Context())
			defer stop()

			status := statusOutput{
				LoggedIn:    sup.HasSession(),
				SessionPath: app.sessions.Path(),
				InstallRoot: app.cfg.InstallRoot,
				Profile:     sup.Profile(cmd.Context()),
			}
			return writeStatusOutput(cmd, status, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")

	return cmd
}

func writeStatusOutput(cmd *cobra.Command, status statusOutput, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	state := "logged out"
	if status.LoggedIn {
		state = "logged in"
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "session: %s\n", state)
	_, _ = fmt.Fprintf(out, "marker: %s\n", status.SessionPath)
	if status.Profile.ChatID != "" {
		_, _ = fmt.Fprintf(out, "channel: %s\n", status.Profile.ChatID)
	}
	_, err := fmt.Fprintf(out, "credit: %s\n", status.Profile.Credit)
	return err
}
