package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vpsdash/vpsdash/internal/output"
)

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the audit log, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // read-only usage

		records, err := s.ListAudit(cmd.Context(), auditLimit)
		if err != nil {
			return err
		}
		return emit(output.AuditTable(records), records)
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "max entries to show")
}
