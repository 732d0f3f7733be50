package cli

import (
	"github.com/spf13/cobra"

	"globalprice/internal/app"
)

var (
	exportQuery   string
	exportOrigin  string
	exportPNGPath string
	exportCSVPath string
	exportRefresh bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a price comparison as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Query:   exportQuery,
			Origin:  exportOrigin,
			PNGPath: exportPNGPath,
			CSVPath: exportCSVPath,
			Refresh: exportRefresh,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportQuery, "query", "", "Product search query")
	exportCmd.Flags().StringVar(&exportOrigin, "origin", "", "Origin country code (defaults to app.home_country)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().BoolVar(&exportRefresh, "refresh", false, "Fetch live exchange rates first")
}
