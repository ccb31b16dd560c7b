package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"stableguard/internal/model"
)

// Assess runs one full assessment cycle and prints the per-asset outcome.
func (a *App) Assess(ctx context.Context) error {
	guard, _, cleanup, err := a.newGuard(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := guard.LoadConfig(ctx); err != nil {
		return err
	}

	result, err := guard.PerformAssessment(ctx, model.TriggerManual)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("assessment failed: %s", result.Error)
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Asset\tLevel\tScore\tSummary")
	for _, assetRisk := range result.Assets {
		fmt.Fprintf(
			writer,
			"%s\t%s (%s)\t%.1f\t%s\n",
			assetRisk.ID,
			assetRisk.RiskLevel.Label(),
			assetRisk.RiskLevel.Code(),
			assetRisk.RiskScore,
			assetRisk.Summary,
		)
	}
	return writer.Flush()
}
