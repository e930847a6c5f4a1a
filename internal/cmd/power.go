package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vpsdash/vpsdash/internal/core"
	"github.com/vpsdash/vpsdash/internal/output"
)

var (
	powerConcurrency int
	powerGroup       string
)

var powerCmd = &cobra.Command{
	Use:   "power <start|stop|reset> [server-id...]",
	Short: "Apply a power action to servers",
	Long: `Apply a power action to servers, named directly or via --group.

With multiple servers the actions settle independently: a failure on one
server never aborts the rest, and the summary reports each outcome.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state := core.PowerState(args[0])
		if !state.Valid() {
			return fmt.Errorf("unsupported power action: %s", args[0])
		}
		serverIDs := args[1:]

		if powerGroup == "" && len(serverIDs) == 0 {
			return fmt.Errorf("name at least one server or pass --group")
		}

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort cleanup

		if powerGroup != "" {
			group, err := s.GetGroup(cmd.Context(), powerGroup)
			if err != nil {
				return err
			}
			if group == nil {
				return fmt.Errorf("group %q does not exist", powerGroup)
			}
			serverIDs = append(serverIDs, group.ServerIDs...)
			if len(serverIDs) == 0 {
				return fmt.Errorf("group %q has no servers", powerGroup)
			}
		}

		client, account, err := activeClient(s)
		if err != nil {
			return err
		}

		if len(serverIDs) == 1 {
			result, err := client.PowerAction(cmd.Context(), serverIDs[0], state)
			if err != nil {
				s.Record(cmd.Context(), core.AuditRecord{
					Action:          "POWER_ACTION",
					Details:         string(state) + " failed",
					AccountName:     account.Name,
					Status:          core.AuditFailure,
					AffectedServers: serverIDs,
				})
				return err
			}

			s.Record(cmd.Context(), core.AuditRecord{
				Action:          "POWER_ACTION",
				Details:         string(state),
				AccountName:     account.Name,
				Status:          core.AuditSuccess,
				AffectedServers: serverIDs,
			})
			fmt.Printf("Server %s command sent (status: %v)\n", state, result.Status)
			return nil
		}

		result, err := core.BatchPower(cmd.Context(), client, state, serverIDs, powerConcurrency)
		if err != nil {
			return err
		}
		core.AuditBatch(cmd.Context(), s, account.Name, result)

		return emit(output.BatchTable(result), result)
	},
}

func init() {
	rootCmd.AddCommand(powerCmd)
	powerCmd.Flags().IntVar(&powerConcurrency, "concurrency", 0, "max parallel power actions (0 = default)")
	powerCmd.Flags().StringVar(&powerGroup, "group", "", "apply the action to every server in the group")
}
