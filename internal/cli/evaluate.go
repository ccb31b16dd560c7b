package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"stableguard/internal/app"
)

var (
	evalFrom    string
	evalTo      string
	evalValue   string
	evalData    string
	evalChainID int64
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one pending transaction against the cached risk data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if evalTo == "" {
			return errors.New("--to is required")
		}

		return getApp().Evaluate(cmd.Context(), app.EvaluateOptions{
			From:    evalFrom,
			To:      evalTo,
			Value:   evalValue,
			Data:    evalData,
			ChainID: evalChainID,
		})
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evalFrom, "from", "", "Sender address")
	evaluateCmd.Flags().StringVar(&evalTo, "to", "", "Destination contract address")
	evaluateCmd.Flags().StringVar(&evalValue, "value", "0x0", "Transaction value (hex wei)")
	evaluateCmd.Flags().StringVar(&evalData, "data", "", "Calldata (hex)")
	evaluateCmd.Flags().Int64Var(&evalChainID, "chain-id", 1, "EVM chain id")
}
