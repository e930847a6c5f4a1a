package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vpsdash/vpsdash/internal/core"
	"github.com/vpsdash/vpsdash/internal/output"
)

var serversCmd = &cobra.Command{
	Use:   "servers [server-id]",
	Short: "List servers on the active account",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // read-only usage

		client, _, err := activeClient(s)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			server, err := client.GetServer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return emit(output.ServersTable([]core.Server{*server}), server)
		}

		servers, err := client.ListServers(cmd.Context())
		if err != nil {
			return err
		}
		return emit(output.ServersTable(servers), servers)
	},
}

func init() {
	rootCmd.AddCommand(serversCmd)
}
