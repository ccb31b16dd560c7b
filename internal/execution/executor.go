package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stableguard/internal/asset"
	"stableguard/internal/model"
	"stableguard/internal/storage"
)

// MaxRecords caps the persisted execution audit trail. The oldest record by
// insertion order is evicted first, not by timestamp, so clock skew cannot
// reorder the trail.
const MaxRecords = 100

// Options configure the executor.
type Options struct {
	Registry *asset.Registry
	Store    storage.KV
}

// Executor is the fifth pipeline stage. It turns strategy bundles into final
// transaction decisions and an append-only audit trail.
type Executor struct {
	registry *asset.Registry
	store    storage.KV
	logger   zerolog.Logger

	clock func() time.Time
	newID func() string
}

// NewExecutor constructs an executor.
func NewExecutor(opts Options, logger zerolog.Logger) *Executor {
	return &Executor{
		registry: opts.Registry,
		store:    opts.Store,
		logger:   logger.With().Str("component", "executor").Logger(),
		clock:    time.Now,
		newID:    uuid.NewString,
	}
}

// EvaluateTransaction applies a strategy bundle's behavioral recommendation
// to one pending transaction. Pure apart from the registry lookup; it never
// fetches fresh risk data.
func (e *Executor) EvaluateTransaction(tx model.TxParams, report model.RiskReport, bundle model.StrategyBundle) model.TransactionEvaluation {
	parsed := ParseTransaction(tx, e.registry)
	eval := model.TransactionEvaluation{
		Context:   parsed,
		Report:    report,
		Bundle:    bundle,
		Timestamp: e.clock(),
	}

	if !parsed.AssetRelated {
		eval.Decision = model.DecisionAllow
		eval.Message = "transaction does not touch a monitored stablecoin"
		return eval
	}

	name := strings.ToUpper(parsed.AssetID)
	switch {
	case !bundle.Behavior.AllowTransaction:
		eval.Decision = model.DecisionBlock
		eval.Message = fmt.Sprintf("transaction blocked: %s", bundle.Behavior.BlockReason)
		eval.Details = report.Summary
	case bundle.Behavior.RequireConfirmation:
		eval.Decision = model.DecisionWarn
		eval.Message = bundle.Behavior.ConfirmationMessage
		eval.Details = report.DetailedAnalysis
		if bundle.Behavior.SuggestedAmountLimit != "" {
			eval.Details += fmt.Sprintf("\nsuggested per-transaction cap: %s USD", bundle.Behavior.SuggestedAmountLimit)
		}
	default:
		eval.Decision = model.DecisionAllow
		eval.Message = fmt.Sprintf("%s risk level is %s", name, report.RiskLevel.Label())
	}
	return eval
}

// ExecuteStrategies runs every action of every strategy in the bundle and
// persists the resulting execution record. A failing action is recorded and
// the remaining actions still run.
func (e *Executor) ExecuteStrategies(ctx context.Context, bundle model.StrategyBundle, trigger model.TriggerType, triggerData string) (model.ExecutionRecord, error) {
	record := model.ExecutionRecord{
		ID:                 e.newID(),
		Timestamp:          e.clock(),
		AssetID:            bundle.AssetID,
		TriggerType:        trigger,
		TriggerData:        triggerData,
		ExecutedStrategies: bundle.Strategies,
		Success:            true,
	}

	for _, strat := range bundle.Strategies {
		for _, action := range strat.Actions {
			result := e.executeAction(action, trigger)
			if result.Result == model.ResultFailed {
				record.Success = false
			}
			record.Actions = append(record.Actions, result)
		}
	}

	if err := e.persistRecord(ctx, record); err != nil {
		return record, fmt.Errorf("persist execution record: %w", err)
	}

	e.logger.Debug().
		Str("asset", bundle.AssetID).
		Str("trigger", string(trigger)).
		Int("actions", len(record.Actions)).
		Bool("success", record.Success).
		Msg("strategies executed")

	return record, nil
}

// executeAction runs one abstract action. Display markers always succeed
// here and are rendered by the UI layer; transaction-scoped actions only
// apply on the transaction trigger, where EvaluateTransaction has already
// folded them into the decision.
func (e *Executor) executeAction(action model.Action, trigger model.TriggerType) model.ActionResult {
	result := model.ActionResult{Kind: action.Kind, Target: action.Target}

	switch action.Kind {
	case model.KindDisplayStatus, model.KindDisplayWarning, model.KindDisplayAlert:
		result.Result = model.ResultSuccess
		if action.Display != nil {
			result.Message = action.Display.Message
		}
	case model.KindRequireConfirmation, model.KindSuggestLimit, model.KindBlockTransaction:
		if trigger != model.TriggerTransaction {
			result.Result = model.ResultSkipped
			result.Message = "transaction-scoped action outside a transaction trigger"
			break
		}
		result.Result = model.ResultSuccess
	default:
		result.Result = model.ResultFailed
		result.Message = fmt.Sprintf("unsupported action kind %q", action.Kind)
	}
	return result
}

func (e *Executor) persistRecord(ctx context.Context, record model.ExecutionRecord) error {
	if err := storage.SetVersioned(ctx, e.store, storage.RecordKey(record.ID), record); err != nil {
		return err
	}

	var index []string
	if err := storage.GetVersioned(ctx, e.store, storage.KeyRecordIndex, &index); err != nil && !storage.IsMiss(err) {
		return err
	}
	index = append(index, record.ID)

	for len(index) > MaxRecords {
		evicted := index[0]
		index = index[1:]
		if err := e.store.Remove(ctx, storage.RecordKey(evicted)); err != nil {
			e.logger.Warn().Err(err).Str("record", evicted).Msg("移除过期执行记录失败")
		}
	}

	return storage.SetVersioned(ctx, e.store, storage.KeyRecordIndex, index)
}

// History returns up to limit execution records, newest first. limit <= 0
// means all retained records.
func (e *Executor) History(ctx context.Context, limit int) ([]model.ExecutionRecord, error) {
	var index []string
	if err := storage.GetVersioned(ctx, e.store, storage.KeyRecordIndex, &index); err != nil {
		if storage.IsMiss(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load record index: %w", err)
	}

	if limit <= 0 || limit > len(index) {
		limit = len(index)
	}

	records := make([]model.ExecutionRecord, 0, limit)
	for i := len(index) - 1; i >= 0 && len(records) < limit; i-- {
		var record model.ExecutionRecord
		if err := storage.GetVersioned(ctx, e.store, storage.RecordKey(index[i]), &record); err != nil {
			if storage.IsMiss(err) {
				continue
			}
			return nil, fmt.Errorf("load record %s: %w", index[i], err)
		}
		records = append(records, record)
	}
	return records, nil
}
