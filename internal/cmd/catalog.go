package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vpsdash/vpsdash/internal/api"
	"github.com/vpsdash/vpsdash/internal/output"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse plans, regions, distros and stock",
}

func catalogClient(cmd *cobra.Command) (*api.Client, func(), error) {
	s, err := openStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}

	client, _, err := activeClient(s)
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	return client, func() { _ = s.Close() }, nil
}

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List purchasable server plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, done, err := catalogClient(cmd)
		if err != nil {
			return err
		}
		defer done()

		plans, err := client.GetPlans(cmd.Context())
		if err != nil {
			return err
		}
		return emit(output.PlansTable(plans), plans)
	},
}

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List datacenter locations",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, done, err := catalogClient(cmd)
		if err != nil {
			return err
		}
		defer done()

		regions, err := client.GetRegions(cmd.Context())
		if err != nil {
			return err
		}
		return emit(output.RegionsTable(regions), regions)
	},
}

var distrosCmd = &cobra.Command{
	Use:   "distros",
	Short: "List installable OS images",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, done, err := catalogClient(cmd)
		if err != nil {
			return err
		}
		defer done()

		distros, err := client.GetDistros(cmd.Context())
		if err != nil {
			return err
		}
		return emit(output.DistrosTable(distros), distros)
	},
}

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Show plan availability per region",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, done, err := catalogClient(cmd)
		if err != nil {
			return err
		}
		defer done()

		stock, err := client.GetStock(cmd.Context())
		if err != nil {
			return err
		}
		return emit(output.StockTable(stock), stock)
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(plansCmd, regionsCmd, distrosCmd, stockCmd)
}
