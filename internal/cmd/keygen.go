package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vpsdash/vpsdash/internal/secret"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an encryption key for stored credentials",
	Long: `Generate an encryption key for stored credentials.

Set the printed value as VPSDASH_ENCRYPTION_KEY (or encryption_key in
the config file). Rotating the key makes previously stored API keys
unreadable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := secret.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
