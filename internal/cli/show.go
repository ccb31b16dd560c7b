package cli

import (
	"github.com/spf13/cobra"

	"stableguard/internal/app"
)

var showAsset string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cached risk reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Show(cmd.Context(), app.ShowOptions{Asset: showAsset})
	},
}

func init() {
	showCmd.Flags().StringVar(&showAsset, "asset", "", "Show the full report and strategies for one asset")
}
