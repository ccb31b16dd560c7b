package app

import (
	"context"
	"fmt"
	"os"

	"stableguard/internal/model"
)

// Evaluate decides on one pending transaction using the cached risk data,
// running a fresh assessment first when no report exists yet.
func (a *App) Evaluate(ctx context.Context, opts EvaluateOptions) error {
	guard, _, cleanup, err := a.newGuard(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := guard.LoadConfig(ctx); err != nil {
		return err
	}

	tx := model.TxParams{
		From:    opts.From,
		To:      opts.To,
		Value:   opts.Value,
		Data:    opts.Data,
		ChainID: opts.ChainID,
	}

	eval, err := guard.EvaluateTransaction(ctx, tx)
	if err != nil {
		return err
	}
	if eval == nil {
		fmt.Fprintln(os.Stdout, "decision: allow (transaction does not touch a monitored stablecoin)")
		return nil
	}

	fmt.Fprintf(os.Stdout, "decision: %s\n", eval.Decision)
	fmt.Fprintf(os.Stdout, "asset:    %s\n", eval.Context.AssetID)
	fmt.Fprintf(os.Stdout, "op:       %s\n", eval.Context.Operation)
	if eval.Context.Amount != "" {
		fmt.Fprintf(os.Stdout, "amount:   %s\n", eval.Context.Amount)
	}
	fmt.Fprintf(os.Stdout, "message:  %s\n", eval.Message)
	if eval.Details != "" {
		fmt.Fprintf(os.Stdout, "details:\n%s\n", eval.Details)
	}
	return nil
}
