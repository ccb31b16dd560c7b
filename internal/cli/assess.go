package cli

import (
	"github.com/spf13/cobra"
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Run one full risk assessment cycle and print the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Assess(cmd.Context())
	},
}
