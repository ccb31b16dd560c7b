package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"stableguard/internal/alerting"
	"stableguard/internal/asset"
	"stableguard/internal/collector"
	"stableguard/internal/execution"
	"stableguard/internal/feature"
	"stableguard/internal/metrics"
	"stableguard/internal/model"
	"stableguard/internal/risk"
	"stableguard/internal/storage"
	"stableguard/internal/strategy"
)

// MaxEvents caps the persisted audit event log.
const MaxEvents = 50

// ErrAssessmentInProgress is returned when a full assessment is requested
// while another one is still running.
var ErrAssessmentInProgress = errors.New("assessment already in progress")

// Options wire the pipeline stages into the guard service.
type Options struct {
	Registry  *asset.Registry
	Collector *collector.Collector
	Engine    *feature.Engine
	Analyzer  *risk.Analyzer
	Generator *strategy.Generator
	Executor  *execution.Executor
	Store     storage.KV

	// Samples is optional; assessment samples are only written when a
	// database is configured.
	Samples storage.SampleStore

	// Notifier is optional; alerts fire at high risk and above, throttled
	// per asset by AlertCooldown.
	Notifier      alerting.Notifier
	AlertCooldown time.Duration

	Guard model.GuardConfig
}

// Guard orchestrates the five pipeline stages. A full assessment runs the
// stages strictly in sequence; per-asset work inside a stage is concurrent.
type Guard struct {
	registry  *asset.Registry
	collector *collector.Collector
	engine    *feature.Engine
	analyzer  *risk.Analyzer
	generator *strategy.Generator
	executor  *execution.Executor
	store     storage.KV
	samples   storage.SampleStore
	notifier  alerting.Notifier
	cooldown  time.Duration
	logger    zerolog.Logger

	running atomic.Bool
	clock   func() time.Time
	newID   func() string

	mu        sync.RWMutex
	cfg       model.GuardConfig
	lastAlert map[string]time.Time
}

// NewGuard constructs the guard service.
func NewGuard(opts Options, logger zerolog.Logger) *Guard {
	cooldown := opts.AlertCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Minute
	}
	return &Guard{
		registry:  opts.Registry,
		collector: opts.Collector,
		engine:    opts.Engine,
		analyzer:  opts.Analyzer,
		generator: opts.Generator,
		executor:  opts.Executor,
		store:     opts.Store,
		samples:   opts.Samples,
		notifier:  opts.Notifier,
		cooldown:  cooldown,
		logger:    logger.With().Str("component", "guard_service").Logger(),
		clock:     time.Now,
		newID:     uuid.NewString,
		cfg:       opts.Guard,
		lastAlert: make(map[string]time.Time),
	}
}

// Config returns the current runtime configuration.
func (g *Guard) Config() model.GuardConfig {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cfg
}

// UpdateConfig validates, applies, and persists a new configuration.
func (g *Guard) UpdateConfig(ctx context.Context, cfg model.GuardConfig) error {
	if !cfg.StrictMode.Valid() {
		return fmt.Errorf("invalid strict mode %q", cfg.StrictMode)
	}
	if cfg.UpdateIntervalMinutes <= 0 {
		return fmt.Errorf("update interval must be positive")
	}

	g.mu.Lock()
	g.cfg = cfg
	g.mu.Unlock()

	if err := storage.SetVersioned(ctx, g.store, storage.KeyConfig, cfg); err != nil {
		return fmt.Errorf("persist config: %w", err)
	}
	g.logger.Info().Str("mode", string(cfg.StrictMode)).Bool("enabled", cfg.Enabled).Msg("configuration updated")
	return nil
}

// Enable turns the guard on.
func (g *Guard) Enable(ctx context.Context) error {
	cfg := g.Config()
	cfg.Enabled = true
	return g.UpdateConfig(ctx, cfg)
}

// Disable turns the guard off. Transactions pass through unevaluated.
func (g *Guard) Disable(ctx context.Context) error {
	cfg := g.Config()
	cfg.Enabled = false
	return g.UpdateConfig(ctx, cfg)
}

// LoadConfig replaces the runtime configuration with the persisted one, if
// any. A missing or stale persisted config keeps the current values.
func (g *Guard) LoadConfig(ctx context.Context) error {
	var cfg model.GuardConfig
	if err := storage.GetVersioned(ctx, g.store, storage.KeyConfig, &cfg); err != nil {
		if storage.IsMiss(err) {
			return nil
		}
		return fmt.Errorf("load persisted config: %w", err)
	}
	g.mu.Lock()
	g.cfg = cfg
	g.mu.Unlock()
	return nil
}

// PerformAssessment runs the full pipeline across all monitored assets.
// Only one assessment runs at a time; a concurrent call fails fast.
func (g *Guard) PerformAssessment(ctx context.Context, trigger model.TriggerType) (model.AssessmentResult, error) {
	if !g.running.CompareAndSwap(false, true) {
		return model.AssessmentResult{
			Timestamp: g.clock(),
			Error:     ErrAssessmentInProgress.Error(),
		}, ErrAssessmentInProgress
	}
	defer g.running.Store(false)

	cfg := g.Config()
	started := g.clock()
	result := model.AssessmentResult{Timestamp: started}

	if !cfg.Enabled {
		result.Error = "stableguard is disabled"
		return result, nil
	}

	stageDurations := make(map[string]int64, 4)
	stageDataPoints := make(map[string]int, 4)
	timeStage := func(name string, run func()) {
		stageStart := g.clock()
		run()
		elapsed := g.clock().Sub(stageStart)
		stageDurations[name] = elapsed.Milliseconds()
		metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}

	var collected model.CollectionResult
	timeStage("collection", func() {
		collected = g.collector.Collect(ctx, cfg.MonitoredAssets)
	})
	stageDataPoints["collection"] = len(collected.Observations)
	for _, msg := range collected.Errors {
		g.logger.Warn().Str("trigger", string(trigger)).Msg(msg)
	}

	var features model.FeatureResult
	timeStage("features", func() {
		features = g.engine.Compute(collected.Observations)
	})
	stageDataPoints["features"] = len(features.Snapshots)

	var reports []model.RiskReport
	timeStage("risk", func() {
		reports = g.analyzer.Analyze(features.Snapshots)
		enrichReports(reports, collected.Observations)
	})
	stageDataPoints["risk"] = len(reports)

	var bundles []model.StrategyBundle
	timeStage("strategy", func() {
		bundles = g.generator.Generate(reports, cfg.StrictMode)
	})
	stageDataPoints["strategy"] = len(bundles)

	if err := g.persistCycle(ctx, reports, bundles); err != nil {
		result.Error = err.Error()
		metrics.AssessmentsTotal.WithLabelValues("error").Inc()
		g.persistCycleMetrics(ctx, metrics.CycleMetrics{
			Timestamp:       started,
			AssetCount:      len(reports),
			StageDurationMS: stageDurations,
			StageDataPoints: stageDataPoints,
			TotalDurationMS: g.clock().Sub(started).Milliseconds(),
		})
		return result, err
	}

	for _, bundle := range bundles {
		if _, err := g.executor.ExecuteStrategies(ctx, bundle, trigger, ""); err != nil {
			g.logger.Error().Err(err).Str("asset", bundle.AssetID).Msg("strategy execution failed")
		}
	}

	g.dispatchAlerts(ctx, reports)
	g.persistSamples(ctx, features.Snapshots, reports, collected)
	g.recordRiskEvents(ctx, reports)

	result.Success = true
	for _, report := range reports {
		result.Assets = append(result.Assets, model.AssetRisk{
			ID:        report.AssetID,
			RiskLevel: report.RiskLevel,
			RiskScore: report.RiskScore,
			Summary:   report.Summary,
		})
	}

	total := g.clock().Sub(started)
	g.persistCycleMetrics(ctx, metrics.CycleMetrics{
		Timestamp:       started,
		Success:         true,
		AssetCount:      len(reports),
		StageDurationMS: stageDurations,
		StageDataPoints: stageDataPoints,
		TotalDurationMS: total.Milliseconds(),
	})
	if err := storage.SetVersioned(ctx, g.store, storage.KeyLastUpdate, started); err != nil {
		g.logger.Warn().Err(err).Msg("persist last update failed")
	}

	metrics.AssessmentsTotal.WithLabelValues("success").Inc()
	g.logger.Info().
		Str("trigger", string(trigger)).
		Int("assets", len(reports)).
		Str("quality", string(collected.Quality)).
		Dur("elapsed", total).
		Msg("assessment completed")

	return result, nil
}

// persistCycle writes every report and bundle of the cycle. Report and
// bundle for one asset always share the same timestamp.
func (g *Guard) persistCycle(ctx context.Context, reports []model.RiskReport, bundles []model.StrategyBundle) error {
	for _, report := range reports {
		if err := storage.SetVersioned(ctx, g.store, storage.RiskKey(report.AssetID), report); err != nil {
			return fmt.Errorf("persist risk report %s: %w", report.AssetID, err)
		}
	}
	for _, bundle := range bundles {
		if err := storage.SetVersioned(ctx, g.store, storage.StrategyKey(bundle.AssetID), bundle); err != nil {
			return fmt.Errorf("persist strategy bundle %s: %w", bundle.AssetID, err)
		}
	}
	return nil
}

// persistCycleMetrics writes the cycle summary for both successful and
// failed cycles. Failures here never fail the assessment.
func (g *Guard) persistCycleMetrics(ctx context.Context, cycle metrics.CycleMetrics) {
	if err := storage.SetVersioned(ctx, g.store, storage.KeyMetrics, cycle); err != nil {
		g.logger.Warn().Err(err).Msg("persist cycle metrics failed")
	}
}

func enrichReports(reports []model.RiskReport, observations []model.RawObservation) {
	byAsset := make(map[string]model.RawObservation, len(observations))
	for _, obs := range observations {
		byAsset[obs.AssetID] = obs
	}
	for i := range reports {
		if obs, ok := byAsset[reports[i].AssetID]; ok {
			reports[i].CurrentPrice = obs.Price
			reports[i].PriceChange24h = obs.PriceChange24h
		}
	}
}

func (g *Guard) dispatchAlerts(ctx context.Context, reports []model.RiskReport) {
	if g.notifier == nil {
		return
	}

	now := g.clock()
	for _, report := range reports {
		if report.RiskLevel < model.RiskHigh {
			continue
		}

		g.mu.Lock()
		last, seen := g.lastAlert[report.AssetID]
		throttled := seen && now.Sub(last) < g.cooldown
		if !throttled {
			g.lastAlert[report.AssetID] = now
		}
		g.mu.Unlock()
		if throttled {
			continue
		}

		factors := make([]string, 0, len(report.PrimaryFactors))
		for _, f := range report.PrimaryFactors {
			factors = append(factors, f.Category.Label())
		}

		note := alerting.Notification{
			AssetID:   report.AssetID,
			Timestamp: report.Timestamp,
			RiskLevel: report.RiskLevel,
			RiskScore: report.RiskScore,
			Summary:   report.Summary,
			Factors:   factors,
		}
		if err := g.notifier.Notify(ctx, note); err != nil {
			g.logger.Error().Err(err).Str("asset", report.AssetID).Msg("alert dispatch failed")
			continue
		}
		metrics.AlertsTotal.Inc()
	}
}

func (g *Guard) persistSamples(ctx context.Context, snapshots []model.FeatureSnapshot, reports []model.RiskReport, collected model.CollectionResult) {
	if g.samples == nil {
		return
	}

	byAsset := make(map[string]model.RiskReport, len(reports))
	for _, report := range reports {
		byAsset[report.AssetID] = report
	}
	obsByAsset := make(map[string]model.RawObservation, len(collected.Observations))
	for _, obs := range collected.Observations {
		obsByAsset[obs.AssetID] = obs
	}

	for _, snap := range snapshots {
		report, ok := byAsset[snap.AssetID]
		if !ok {
			continue
		}
		obs := obsByAsset[snap.AssetID]
		sample := storage.AssessmentSample{
			AssetID:      snap.AssetID,
			Bucket:       collected.CollectedAt.UTC().Truncate(time.Minute),
			Price:        decimal.NewFromFloat(obs.Price),
			DeviationPct: decimal.NewFromFloat(snap.PriceDeviation.Value),
			Volume24h:    decimal.NewFromFloat(obs.Volume24h),
			MarketCap:    decimal.NewFromFloat(obs.MarketCap),
			AnomalyScore: snap.OverallAnomalyScore,
			RiskScore:    report.RiskScore,
			RiskLevel:    report.RiskLevel.Code(),
		}
		if err := g.samples.InsertSample(ctx, sample); err != nil {
			g.logger.Warn().Err(err).Str("asset", snap.AssetID).Msg("写入评估样本失败")
		}
	}
}

func (g *Guard) recordRiskEvents(ctx context.Context, reports []model.RiskReport) {
	for _, report := range reports {
		if report.RiskLevel < model.RiskHigh {
			continue
		}
		g.recordEvent(ctx, model.Event{
			AssetID:     report.AssetID,
			Type:        model.EventRiskDetected,
			Severity:    report.RiskLevel,
			Title:       fmt.Sprintf("%s risk detected", strings.ToUpper(report.AssetID)),
			Description: report.Summary,
		})
	}
}

// EvaluateTransaction decides on one pending transaction using the latest
// cached risk data. Returns nil when the transaction does not touch a
// monitored asset or the guard is disabled; such transactions are never
// blocked.
func (g *Guard) EvaluateTransaction(ctx context.Context, tx model.TxParams) (*model.TransactionEvaluation, error) {
	cfg := g.Config()
	if !cfg.Enabled {
		return nil, nil
	}

	parsed := execution.ParseTransaction(tx, g.registry)
	if !parsed.AssetRelated || !g.monitored(cfg, parsed.AssetID) {
		return nil, nil
	}

	report, bundle, err := g.cachedPair(ctx, parsed.AssetID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		g.logger.Warn().Str("asset", parsed.AssetID).Msg("no risk data available, transaction passes through")
		return nil, nil
	}

	eval := g.executor.EvaluateTransaction(tx, *report, *bundle)
	metrics.TransactionDecisions.WithLabelValues(string(eval.Decision)).Inc()

	g.recordEvent(ctx, model.Event{
		AssetID:     parsed.AssetID,
		Type:        model.EventTxEvaluated,
		Severity:    report.RiskLevel,
		Title:       fmt.Sprintf("transaction %s", eval.Decision),
		Description: eval.Message,
	})

	if _, err := g.executor.ExecuteStrategies(ctx, *bundle, model.TriggerTransaction, tx.To); err != nil {
		g.logger.Error().Err(err).Str("asset", parsed.AssetID).Msg("strategy execution failed")
	}

	return &eval, nil
}

// cachedPair loads the asset's risk report and strategy bundle from storage.
// A missing or schema-stale report triggers one fresh assessment before the
// lookup is retried. A missing bundle is regenerated from the report, since
// generation is pure.
func (g *Guard) cachedPair(ctx context.Context, assetID string) (*model.RiskReport, *model.StrategyBundle, error) {
	report, err := g.loadReport(ctx, assetID)
	if err != nil {
		return nil, nil, err
	}
	if report == nil {
		if _, err := g.PerformAssessment(ctx, model.TriggerTransaction); err != nil && !errors.Is(err, ErrAssessmentInProgress) {
			return nil, nil, fmt.Errorf("on-demand assessment: %w", err)
		}
		if report, err = g.loadReport(ctx, assetID); err != nil {
			return nil, nil, err
		}
		if report == nil {
			return nil, nil, nil
		}
	}

	var bundle model.StrategyBundle
	if err := storage.GetVersioned(ctx, g.store, storage.StrategyKey(assetID), &bundle); err != nil {
		if !storage.IsMiss(err) {
			return nil, nil, fmt.Errorf("load strategy bundle %s: %w", assetID, err)
		}
		bundle = g.generator.Bundle(*report, g.Config().StrictMode)
	}
	return report, &bundle, nil
}

func (g *Guard) loadReport(ctx context.Context, assetID string) (*model.RiskReport, error) {
	var report model.RiskReport
	if err := storage.GetVersioned(ctx, g.store, storage.RiskKey(assetID), &report); err != nil {
		if storage.IsMiss(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load risk report %s: %w", assetID, err)
	}
	return &report, nil
}

func (g *Guard) monitored(cfg model.GuardConfig, assetID string) bool {
	for _, id := range cfg.MonitoredAssets {
		if strings.EqualFold(id, assetID) {
			return true
		}
	}
	return false
}

// recordEvent appends to the capped audit event log. Event log failures are
// logged but never fail the caller.
func (g *Guard) recordEvent(ctx context.Context, event model.Event) {
	event.ID = g.newID()
	event.Timestamp = g.clock()

	var events []model.Event
	if err := storage.GetVersioned(ctx, g.store, storage.KeyEvents, &events); err != nil && !storage.IsMiss(err) {
		g.logger.Warn().Err(err).Msg("load event log failed")
		return
	}

	events = append(events, event)
	if len(events) > MaxEvents {
		events = events[len(events)-MaxEvents:]
	}

	if err := storage.SetVersioned(ctx, g.store, storage.KeyEvents, events); err != nil {
		g.logger.Warn().Err(err).Msg("persist event log failed")
	}
}

// Events returns up to limit audit events, newest first.
func (g *Guard) Events(ctx context.Context, limit int) ([]model.Event, error) {
	var events []model.Event
	if err := storage.GetVersioned(ctx, g.store, storage.KeyEvents, &events); err != nil {
		if storage.IsMiss(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load event log: %w", err)
	}

	if limit <= 0 || limit > len(events) {
		limit = len(events)
	}
	out := make([]model.Event, 0, limit)
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, events[i])
	}
	return out, nil
}

// Report returns the cached risk report for one asset, or nil.
func (g *Guard) Report(ctx context.Context, assetID string) (*model.RiskReport, error) {
	return g.loadReport(ctx, assetID)
}

// Bundle returns the cached strategy bundle for one asset, or nil.
func (g *Guard) Bundle(ctx context.Context, assetID string) (*model.StrategyBundle, error) {
	var bundle model.StrategyBundle
	if err := storage.GetVersioned(ctx, g.store, storage.StrategyKey(assetID), &bundle); err != nil {
		if storage.IsMiss(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load strategy bundle %s: %w", assetID, err)
	}
	return &bundle, nil
}

// LastUpdate returns the completion time of the latest successful cycle.
func (g *Guard) LastUpdate(ctx context.Context) (time.Time, error) {
	var at time.Time
	if err := storage.GetVersioned(ctx, g.store, storage.KeyLastUpdate, &at); err != nil {
		if storage.IsMiss(err) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return at, nil
}
