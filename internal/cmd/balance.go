package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the active account's balance",
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

		balance, err := client.GetBalance(cmd.Context())
		if err != nil {
			return err
		}

		return emit(fmt.Sprintf("Balance: %s", balance.Balance), balance)
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
