package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vpsdash/vpsdash/internal/output"
)

var (
	groupDescription string
	groupColor       string
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Manage server groups",
}

var groupsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a server group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort cleanup

		group, err := s.CreateGroup(cmd.Context(), args[0], groupDescription, groupColor)
		if err != nil {
			return err
		}
		fmt.Printf("Group %q created\n", group.Name)
		return nil
	},
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List server groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // read-only usage

		groups, err := s.ListGroups(cmd.Context())
		if err != nil {
			return err
		}
		return emit(output.GroupsTable(groups), groups)
	},
}

var groupsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a server group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort cleanup

		if err := s.DeleteGroup(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Group %q deleted\n", args[0])
		return nil
	},
}

var groupsAddCmd = &cobra.Command{
	Use:   "add <group> <server-id>...",
	Short: "Add servers to a group",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort cleanup

		group, err := s.AddServersToGroup(cmd.Context(), args[0], args[1:]...)
		if err != nil {
			return err
		}
		fmt.Printf("Group %q now has %d servers\n", group.Name, len(group.ServerIDs))
		return nil
	},
}

var groupsRemoveCmd = &cobra.Command{
	Use:   "remove <group> <server-id>...",
	Short: "Remove servers from a group",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort cleanup

		group, err := s.RemoveServersFromGroup(cmd.Context(), args[0], args[1:]...)
		if err != nil {
			return err
		}
		fmt.Printf("Group %q now has %d servers\n", group.Name, len(group.ServerIDs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(groupsCmd)
	groupsCmd.AddCommand(groupsCreateCmd, groupsListCmd, groupsDeleteCmd, groupsAddCmd, groupsRemoveCmd)
	groupsCreateCmd.Flags().StringVar(&groupDescription, "description", "", "group description")
	groupsCreateCmd.Flags().StringVar(&groupColor, "color", "", "group color (hex)")
}
