package cli

import (
	"github.com/spf13/cobra"

	"globalprice/internal/app"
)

var ratesRefresh bool

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show the exchange-rate table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Rates(cmd.Context(), app.RatesOptions{Refresh: ratesRefresh})
	},
}

func init() {
	ratesCmd.Flags().BoolVar(&ratesRefresh, "refresh", false, "Fetch live rates instead of the built-in table")
}
