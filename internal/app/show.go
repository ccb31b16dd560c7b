package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"stableguard/internal/service"
)

// Show prints the cached risk state: per-asset report summaries, or the full
// report and strategy bundle when one asset is requested.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	guard, _, cleanup, err := a.newGuard(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := guard.LoadConfig(ctx); err != nil {
		return err
	}

	if opts.Asset != "" {
		return a.showAsset(ctx, guard, strings.ToLower(opts.Asset))
	}

	lastUpdate, err := guard.LastUpdate(ctx)
	if err != nil {
		return err
	}
	if lastUpdate.IsZero() {
		fmt.Fprintln(os.Stdout, "no assessment has run yet")
		return nil
	}
	fmt.Fprintf(os.Stdout, "last assessment: %s\n\n", lastUpdate.UTC().Format(time.RFC3339))

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Asset\tLevel\tScore\tPrice\tConfidence\tSummary")
	for _, id := range guard.Config().MonitoredAssets {
		report, err := guard.Report(ctx, id)
		if err != nil {
			return err
		}
		if report == nil {
			fmt.Fprintf(writer, "%s\t-\t-\t-\t-\tno cached report\n", id)
			continue
		}
		fmt.Fprintf(
			writer,
			"%s\t%s (%s)\t%.1f\t%.4f\t%.2f\t%s\n",
			report.AssetID,
			report.RiskLevel.Label(),
			report.RiskLevel.Code(),
			report.RiskScore,
			report.CurrentPrice,
			report.Confidence,
			report.Summary,
		)
	}
	return writer.Flush()
}

func (a *App) showAsset(ctx context.Context, guard *service.Guard, assetID string) error {
	report, err := guard.Report(ctx, assetID)
	if err != nil {
		return err
	}
	if report == nil {
		fmt.Fprintf(os.Stdout, "no cached report for %s\n", assetID)
		return nil
	}

	fmt.Fprintf(os.Stdout, "asset:      %s\n", report.AssetID)
	fmt.Fprintf(os.Stdout, "assessed:   %s\n", report.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(os.Stdout, "level:      %s (%s)\n", report.RiskLevel.Label(), report.RiskLevel.Code())
	fmt.Fprintf(os.Stdout, "score:      %.1f\n", report.RiskScore)
	fmt.Fprintf(os.Stdout, "confidence: %.2f\n", report.Confidence)
	fmt.Fprintf(os.Stdout, "\n%s\n", report.DetailedAnalysis)

	bundle, err := guard.Bundle(ctx, assetID)
	if err != nil {
		return err
	}
	if bundle == nil {
		return nil
	}

	fmt.Fprintln(os.Stdout, "strategies:")
	for _, strat := range bundle.Strategies {
		fmt.Fprintf(os.Stdout, "- [%s/%s p%d] %s\n", strat.Type, strat.ActionLevel, strat.Priority, strat.Title)
	}
	fmt.Fprintf(os.Stdout, "\nallow: %t  confirm: %t", bundle.Behavior.AllowTransaction, bundle.Behavior.RequireConfirmation)
	if bundle.Behavior.SuggestedAmountLimit != "" {
		fmt.Fprintf(os.Stdout, "  limit: %s USD", bundle.Behavior.SuggestedAmountLimit)
	}
	fmt.Fprintln(os.Stdout)
	return nil
}
