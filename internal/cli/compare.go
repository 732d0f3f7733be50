package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"globalprice/internal/app"
)

var (
	compareOrigin  string
	compareRefresh bool
)

var compareCmd = &cobra.Command{
	Use:   "compare <query>",
	Short: "Print a cross-country price comparison for matching products",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Compare(cmd.Context(), app.CompareOptions{
			Query:   strings.Join(args, " "),
			Origin:  compareOrigin,
			Refresh: compareRefresh,
		})
	},
}

func init() {
	compareCmd.Flags().StringVar(&compareOrigin, "origin", "", "Origin country code (defaults to app.home_country)")
	compareCmd.Flags().BoolVar(&compareRefresh, "refresh", false, "Fetch live exchange rates before comparing")
}
