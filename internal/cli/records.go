package cli

import (
	"github.com/spf13/cobra"

	"stableguard/internal/app"
)

var (
	recordsLimit  int
	recordsEvents bool
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Print the strategy execution audit trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Records(cmd.Context(), app.RecordsOptions{
			Limit:  recordsLimit,
			Events: recordsEvents,
		})
	},
}

func init() {
	recordsCmd.Flags().IntVar(&recordsLimit, "limit", 20, "Maximum entries to print")
	recordsCmd.Flags().BoolVar(&recordsEvents, "events", false, "Print the audit event log instead")
}
