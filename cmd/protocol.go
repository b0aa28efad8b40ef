package cmd

import (
	"encoding/json"

	"github.com/Thnoxs/localy-v1/internal/adapters/lineproto"
	"github.com/spf13/cobra"
)

func newProtocolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "protocol",
		Short: "Describe the child process line protocol",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of one child stdout line",
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(lineproto.Schema())
		},
	})

	return cmd
}
