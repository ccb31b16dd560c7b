package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

const usdtMainnet = "0xdAC17F958D2ee523a2206206994597C13D831ec7"

type scriptedPrices struct {
	mu     sync.Mutex
	quotes map[string]collector.Quote
	err    error
	gate   chan struct{}
}

func (s *scriptedPrices) FetchQuote(ctx context.Context, assetID string) (collector.Quote, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return collector.Quote{}, s.err
	}
	if quote, ok := s.quotes[assetID]; ok {
		return quote, nil
	}
	return collector.Quote{Price: 1.0, Volume24h: 5e9, MarketCap: 100e9}, nil
}

func (s *scriptedPrices) set(assetID string, quote collector.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quotes == nil {
		s.quotes = map[string]collector.Quote{}
	}
	s.quotes[assetID] = quote
}

type countingNotifier struct {
	mu    sync.Mutex
	notes []alerting.Notification
}

func (c *countingNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, note)
	return nil
}

func (c *countingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notes)
}

func testGuard(t *testing.T, prices collector.PriceSource, cfg model.GuardConfig, notifier alerting.Notifier) (*Guard, storage.KV) {
	t.Helper()
	store := storage.NewMemory()
	return testGuardWith(t, prices, cfg, notifier, store), store
}

func testGuardWith(t *testing.T, prices collector.PriceSource, cfg model.GuardConfig, notifier alerting.Notifier, store storage.KV) *Guard {
	t.Helper()

	registry := asset.DefaultRegistry()
	logger := zerolog.Nop()

	guard := NewGuard(Options{
		Registry:      registry,
		Collector:     collector.New(registry, prices, collector.NopChain{}, collector.Options{}, logger),
		Engine:        feature.NewEngine(registry, feature.Options{}, logger),
		Analyzer:      risk.NewAnalyzer(logger),
		Generator:     strategy.NewGenerator(logger),
		Executor:      execution.NewExecutor(execution.Options{Registry: registry, Store: store}, logger),
		Store:         store,
		Notifier:      notifier,
		AlertCooldown: 30 * time.Minute,
		Guard:         cfg,
	}, logger)
	return guard
}

func defaultCfg() model.GuardConfig {
	cfg := model.DefaultGuardConfig()
	cfg.MonitoredAssets = []string{"usdt", "usdc", "dai"}
	return cfg
}

func TestAssessmentPersistsReportsAndBundles(t *testing.T) {
	guard, store := testGuard(t, &scriptedPrices{}, defaultCfg(), nil)
	ctx := context.Background()

	result, err := guard.PerformAssessment(ctx, model.TriggerManual)
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.Assets, 3)

	for _, id := range []string{"usdt", "usdc", "dai"} {
		var report model.RiskReport
		require.NoError(t, storage.GetVersioned(ctx, store, storage.RiskKey(id), &report))
		var bundle model.StrategyBundle
		require.NoError(t, storage.GetVersioned(ctx, store, storage.StrategyKey(id), &bundle))
		assert.Equal(t, report.AssetID, bundle.AssetID)
		assert.Equal(t, report.Timestamp, bundle.Timestamp)
	}

	last, err := guard.LastUpdate(ctx)
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}

// faultyStore rejects writes to risk report keys; everything else passes
// through to the wrapped store.
type faultyStore struct {
	storage.KV
}

func (f *faultyStore) Set(ctx context.Context, key string, value []byte) error {
	if strings.HasPrefix(key, storage.RiskKey("")) {
		return errors.New("disk full")
	}
	return f.KV.Set(ctx, key, value)
}

func TestCycleMetricsRecordStageDataPoints(t *testing.T) {
	guard, store := testGuard(t, &scriptedPrices{}, defaultCfg(), nil)
	ctx := context.Background()

	_, err := guard.PerformAssessment(ctx, model.TriggerManual)
	require.NoError(t, err)

	var cycle metrics.CycleMetrics
	require.NoError(t, storage.GetVersioned(ctx, store, storage.KeyMetrics, &cycle))
	assert.True(t, cycle.Success)
	assert.Equal(t, 3, cycle.AssetCount)
	for _, stage := range []string{"collection", "features", "risk", "strategy"} {
		assert.Equal(t, 3, cycle.StageDataPoints[stage], "stage %s", stage)
		assert.Contains(t, cycle.StageDurationMS, stage)
	}
}

func TestFailedCyclePersistsMetrics(t *testing.T) {
	store := &faultyStore{KV: storage.NewMemory()}
	guard := testGuardWith(t, &scriptedPrices{}, defaultCfg(), nil, store)
	ctx := context.Background()

	result, err := guard.PerformAssessment(ctx, model.TriggerScheduled)
	require.Error(t, err)
	assert.False(t, result.Success)

	var cycle metrics.CycleMetrics
	require.NoError(t, storage.GetVersioned(ctx, store, storage.KeyMetrics, &cycle))
	assert.False(t, cycle.Success, "失败周期的指标应标记为未成功")
	assert.Equal(t, 3, cycle.StageDataPoints["risk"])
	assert.Contains(t, cycle.StageDurationMS, "strategy")
}

func TestFallbackSafety(t *testing.T) {
	guard, _ := testGuard(t, &scriptedPrices{err: errors.New("price api down")}, defaultCfg(), nil)

	result, err := guard.PerformAssessment(context.Background(), model.TriggerScheduled)
	require.NoError(t, err, "a dead price source must never fail the cycle")
	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	require.Len(t, result.Assets, 3)
	for _, assetRisk := range result.Assets {
		assert.NotEmpty(t, assetRisk.ID)
		assert.NotEmpty(t, assetRisk.Summary)
	}
}

func TestReentrancyGuard(t *testing.T) {
	prices := &scriptedPrices{gate: make(chan struct{})}
	guard, _ := testGuard(t, prices, defaultCfg(), nil)

	done := make(chan model.AssessmentResult, 1)
	go func() {
		result, _ := guard.PerformAssessment(context.Background(), model.TriggerScheduled)
		done <- result
	}()

	// Wait until the first run is inside the collection stage.
	require.Eventually(t, func() bool { return guard.running.Load() }, time.Second, time.Millisecond)

	second, err := guard.PerformAssessment(context.Background(), model.TriggerManual)
	assert.ErrorIs(t, err, ErrAssessmentInProgress)
	assert.False(t, second.Success)
	assert.Contains(t, second.Error, "in progress")

	close(prices.gate)
	first := <-done
	assert.True(t, first.Success, "the rejected call must not affect the in-flight one")
}

func TestDisabledGuardSkipsEverything(t *testing.T) {
	cfg := defaultCfg()
	cfg.Enabled = false
	guard, _ := testGuard(t, &scriptedPrices{}, cfg, nil)
	ctx := context.Background()

	result, err := guard.PerformAssessment(ctx, model.TriggerScheduled)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "disabled")

	eval, err := guard.EvaluateTransaction(ctx, model.TxParams{To: usdtMainnet, ChainID: 1})
	require.NoError(t, err)
	assert.Nil(t, eval)
}

func TestEvaluateTriggersFreshAssessmentOnMiss(t *testing.T) {
	guard, store := testGuard(t, &scriptedPrices{}, defaultCfg(), nil)
	ctx := context.Background()

	eval, err := guard.EvaluateTransaction(ctx, model.TxParams{To: usdtMainnet, ChainID: 1})
	require.NoError(t, err)
	require.NotNil(t, eval, "a fresh assessment fills the missing report")
	assert.Equal(t, model.DecisionAllow, eval.Decision)

	var report model.RiskReport
	assert.NoError(t, storage.GetVersioned(ctx, store, storage.RiskKey("usdt"), &report))
}

func TestEvaluateIgnoresUnmonitoredDestination(t *testing.T) {
	guard, _ := testGuard(t, &scriptedPrices{}, defaultCfg(), nil)

	eval, err := guard.EvaluateTransaction(context.Background(), model.TxParams{
		To:      "0x0000000000000000000000000000000000000001",
		ChainID: 1,
	})
	require.NoError(t, err)
	assert.Nil(t, eval)
}

func TestBlockGatingEndToEnd(t *testing.T) {
	cfg := defaultCfg()
	cfg.StrictMode = model.StrictBlock
	guard, store := testGuard(t, &scriptedPrices{}, cfg, nil)
	ctx := context.Background()

	report := model.RiskReport{
		AssetID:   "usdt",
		Timestamp: time.Now(),
		RiskLevel: model.RiskVeryHigh,
		RiskScore: 85,
		Summary:   "USDT depeg in progress",
	}
	require.NoError(t, storage.SetVersioned(ctx, store, storage.RiskKey("usdt"), report))
	bundle := strategy.NewGenerator(zerolog.Nop()).Bundle(report, model.StrictBlock)
	require.NoError(t, storage.SetVersioned(ctx, store, storage.StrategyKey("usdt"), bundle))

	eval, err := guard.EvaluateTransaction(ctx, model.TxParams{To: usdtMainnet, ChainID: 1})
	require.NoError(t, err)
	require.NotNil(t, eval)
	assert.Equal(t, model.DecisionBlock, eval.Decision)

	// The same cached report under none mode never blocks.
	cfgNone := cfg
	cfgNone.StrictMode = model.StrictNone
	require.NoError(t, guard.UpdateConfig(ctx, cfgNone))
	bundleNone := strategy.NewGenerator(zerolog.Nop()).Bundle(report, model.StrictNone)
	require.NoError(t, storage.SetVersioned(ctx, store, storage.StrategyKey("usdt"), bundleNone))

	eval, err = guard.EvaluateTransaction(ctx, model.TxParams{To: usdtMainnet, ChainID: 1})
	require.NoError(t, err)
	require.NotNil(t, eval)
	assert.NotEqual(t, model.DecisionBlock, eval.Decision)
}

func TestStaleSchemaTriggersRecompute(t *testing.T) {
	guard, store := testGuard(t, &scriptedPrices{}, defaultCfg(), nil)
	ctx := context.Background()

	// A document written under a different schema version reads as a miss.
	stale := []byte(`{"schemaVersion":0,"payload":{"assetId":"usdt"}}`)
	require.NoError(t, store.Set(ctx, storage.RiskKey("usdt"), stale))

	eval, err := guard.EvaluateTransaction(ctx, model.TxParams{To: usdtMainnet, ChainID: 1})
	require.NoError(t, err)
	require.NotNil(t, eval)

	var report model.RiskReport
	require.NoError(t, storage.GetVersioned(ctx, store, storage.RiskKey("usdt"), &report))
	assert.Equal(t, "usdt", report.AssetID)
}

func TestConfigRoundTrip(t *testing.T) {
	guard, store := testGuard(t, &scriptedPrices{}, defaultCfg(), nil)
	ctx := context.Background()

	cfg := guard.Config()
	cfg.StrictMode = model.StrictBlock
	cfg.UpdateIntervalMinutes = 10
	require.NoError(t, guard.UpdateConfig(ctx, cfg))

	other := NewGuard(Options{
		Registry:  asset.DefaultRegistry(),
		Generator: strategy.NewGenerator(zerolog.Nop()),
		Store:     store,
		Guard:     model.DefaultGuardConfig(),
	}, zerolog.Nop())
	require.NoError(t, other.LoadConfig(ctx))
	assert.Equal(t, model.StrictBlock, other.Config().StrictMode)
	assert.Equal(t, 10, other.Config().UpdateIntervalMinutes)
}

func TestUpdateConfigRejectsInvalidMode(t *testing.T) {
	guard, _ := testGuard(t, &scriptedPrices{}, defaultCfg(), nil)

	cfg := guard.Config()
	cfg.StrictMode = "paranoid"
	assert.Error(t, guard.UpdateConfig(context.Background(), cfg))
}

func TestEnableDisable(t *testing.T) {
	guard, _ := testGuard(t, &scriptedPrices{}, defaultCfg(), nil)
	ctx := context.Background()

	require.NoError(t, guard.Disable(ctx))
	assert.False(t, guard.Config().Enabled)
	require.NoError(t, guard.Enable(ctx))
	assert.True(t, guard.Config().Enabled)
}

func TestAlertCooldown(t *testing.T) {
	notifier := &countingNotifier{}
	guard, _ := testGuard(t, &scriptedPrices{}, defaultCfg(), notifier)

	reports := []model.RiskReport{{
		AssetID:   "usdt",
		Timestamp: time.Now(),
		RiskLevel: model.RiskVeryHigh,
		RiskScore: 85,
	}}

	ctx := context.Background()
	guard.dispatchAlerts(ctx, reports)
	guard.dispatchAlerts(ctx, reports)
	assert.Equal(t, 1, notifier.count(), "第二次告警应被冷却期抑制")

	// Low-risk reports never alert.
	guard.dispatchAlerts(ctx, []model.RiskReport{{AssetID: "dai", RiskLevel: model.RiskLow}})
	assert.Equal(t, 1, notifier.count())
}

func TestEventLogCapped(t *testing.T) {
	guard, _ := testGuard(t, &scriptedPrices{}, defaultCfg(), nil)
	ctx := context.Background()

	for i := 0; i < MaxEvents+10; i++ {
		guard.recordEvent(ctx, model.Event{
			AssetID: "usdt",
			Type:    model.EventRiskDetected,
			Title:   "risk detected",
		})
	}

	events, err := guard.Events(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, events, MaxEvents)
}
