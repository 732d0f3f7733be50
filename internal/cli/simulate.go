package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"globalprice/internal/app"
)

var (
	simulateProduct string
	simulateContact string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a test alert for a product through the configured channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateProduct == "" {
			return errors.New("--product must be provided")
		}
		return getApp().SimulateAlert(cmd.Context(), app.SimulateOptions{
			ProductID: simulateProduct,
			Contact:   simulateContact,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateProduct, "product", "", "Catalog product id")
	simulateCmd.Flags().StringVar(&simulateContact, "contact", "", "Recipient address for the email channel")
}
