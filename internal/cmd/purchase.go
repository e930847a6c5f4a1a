package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vpsdash/vpsdash/internal/core"
)

var (
	purchasePlanID   int
	purchaseRegionID int
	purchaseDistroID int
)

var purchaseCmd = &cobra.Command{
	Use:   "purchase",
	Short: "Order a new server",
	Long: `Order a new server on the active account.

Use 'vpsdash catalog' to look up plan, region and distro IDs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() // nolint:errcheck // best-effort cleanup

		client, account, err := activeClient(s)
		if err != nil {
			return err
		}

		result, err := client.PurchaseServer(cmd.Context(), core.PurchaseRequest{
			PlanID:   purchasePlanID,
			RegionID: purchaseRegionID,
			DistroID: purchaseDistroID,
		})
		if err != nil {
			return err
		}

		s.Record(cmd.Context(), core.AuditRecord{
			Action:      "SERVER_PURCHASE",
			Details:     fmt.Sprintf("plan %d in region %d", purchasePlanID, purchaseRegionID),
			AccountName: account.Name,
			Status:      core.AuditSuccess,
		})

		fmt.Printf("Order placed, server id %d\n", result.ServerID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purchaseCmd)
	purchaseCmd.Flags().IntVar(&purchasePlanID, "plan", 0, "plan id (required)")
	purchaseCmd.Flags().IntVar(&purchaseRegionID, "region", 0, "region id (required)")
	purchaseCmd.Flags().IntVar(&purchaseDistroID, "distro", 0, "distro id (required)")
	_ = purchaseCmd.MarkFlagRequired("plan")
	_ = purchaseCmd.MarkFlagRequired("region")
	_ = purchaseCmd.MarkFlagRequired("distro")
}
