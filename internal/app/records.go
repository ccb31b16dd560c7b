package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Records prints the execution audit trail, or the event log with --events.
func (a *App) Records(ctx context.Context, opts RecordsOptions) error {
	guard, executor, cleanup, err := a.newGuard(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if opts.Events {
		events, err := guard.Events(ctx, opts.Limit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(os.Stdout, "no events recorded")
			return nil
		}

		writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "Time (UTC)\tAsset\tType\tSeverity\tTitle")
		for _, event := range events {
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\t%s\t%s\n",
				event.Timestamp.UTC().Format(time.RFC3339),
				event.AssetID,
				event.Type,
				event.Severity.Code(),
				event.Title,
			)
		}
		return writer.Flush()
	}

	records, err := executor.History(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no execution records found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tAsset\tTrigger\tStrategies\tActions\tSuccess")
	for _, record := range records {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%d\t%d\t%t\n",
			record.Timestamp.UTC().Format(time.RFC3339),
			record.AssetID,
			record.TriggerType,
			len(record.ExecutedStrategies),
			len(record.Actions),
			record.Success,
		)
	}
	return writer.Flush()
}
