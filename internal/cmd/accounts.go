package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vpsdash/vpsdash/internal/core"
	"github.com/vpsdash/vpsdash/internal/observability"
	"github.com/vpsdash/vpsdash/internal/output"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage stored provider accounts",
}

var accountsAddCmd = &cobra.Command{
	Use:   "add <name> <api-key>",
	Short: "Store a new account and validate its key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, apiKey := args[0], args[1]

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort cleanup

		account, err := s.AddAccount(cmd.Context(), name, apiKey)
		if err != nil {
			return err
		}

		// probe the key against the live API
		status, lastError := core.AccountActive, ""
		client, err := newClient(apiKey)
		if err == nil {
			_, err = client.ListServers(cmd.Context())
		}
		if err != nil {
			status, lastError = core.AccountError, err.Error()
		}

		if err := s.MarkAccountStatus(cmd.Context(), account.ID, status, lastError); err != nil {
			observability.Logger().Warn("record account status failed", zap.Error(err))
		}

		if status == core.AccountError {
			fmt.Printf("Account %q stored, but key validation failed: %s\n", name, lastError)
			return nil
		}
		fmt.Printf("Account %q stored and validated\n", name)
		return nil
	},
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // read-only usage

		accounts, err := s.ListAccounts(cmd.Context())
		if err != nil {
			return err
		}

		activeID := ""
		if active, ok := s.ActiveAccount(); ok {
			activeID = active.ID
		}

		return emit(output.AccountsTable(accounts, activeID), accounts)
	},
}

var accountsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one stored account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // read-only usage

		account, err := s.GetAccount(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		activeID := ""
		if active, ok := s.ActiveAccount(); ok {
			activeID = active.ID
		}

		return emit(output.AccountsTable([]core.Account{*account}, activeID), account)
	},
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a stored account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort cleanup

		if err := s.RemoveAccount(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Account %q removed\n", args[0])
		return nil
	},
}

var accountsUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Select the active account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort cleanup

		if err := s.UseAccount(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Now using account %q\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsAddCmd, accountsListCmd, accountsShowCmd, accountsRemoveCmd, accountsUseCmd)
}
