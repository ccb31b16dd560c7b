package feature

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stableguard/internal/asset"
	"stableguard/internal/model"
)

func testEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	return NewEngine(asset.DefaultRegistry(), opts, zerolog.Nop())
}

func obsAt(price, volume, marketCap, change24h float64) model.RawObservation {
	return model.RawObservation{
		AssetID:        "usdt",
		Timestamp:      time.Now(),
		Price:          price,
		PriceChange24h: change24h,
		Volume24h:      volume,
		MarketCap:      marketCap,
	}
}

func TestWindowBound(t *testing.T) {
	engine := testEngine(t, Options{WindowSize: 20})

	for i := 0; i < 25; i++ {
		engine.Compute([]model.RawObservation{obsAt(1.0, 10, 100, 0)})
	}

	assert.Equal(t, 20, engine.WindowLen("usdt"))

	w := engine.windows["usdt"]
	require.Len(t, w.prices, 20)
	require.Len(t, w.volumes, 20)
	require.Len(t, w.timestamps, 20)
}

func TestDepegCannotDiluteOwnThreshold(t *testing.T) {
	engine := testEngine(t, Options{})

	// Six calm samples around the peg, then a 2.1% depeg.
	calm := []float64{1.000, 1.001, 0.999, 1.000, 1.001, 0.999}
	for _, price := range calm {
		engine.Compute([]model.RawObservation{obsAt(price, 4.8, 100, 0)})
	}

	result := engine.Compute([]model.RawObservation{obsAt(1.021, 4.8, 100, 2.1)})
	require.Len(t, result.Snapshots, 1)
	snap := result.Snapshots[0]

	dev := snap.PriceDeviation
	assert.True(t, dev.Anomalous)
	assert.InDelta(t, 2.1, dev.Value, 0.01)
	assert.Less(t, dev.DynamicThreshold, 0.5, "threshold must come from the calm history, not the depeg itself")
	assert.InDelta(t, 1.0, dev.Severity, 1e-9)

	// 4.8% volume/cap ratio sits inside the normal liquidity band.
	assert.False(t, snap.LiquidityRatio.Anomalous)
	assert.False(t, snap.Volatility.Anomalous)

	// Only price deviation contributes: 100 * (1.0*3.0) / 12.5.
	assert.InDelta(t, 24.0, snap.OverallAnomalyScore, 0.5)
	assert.Equal(t, model.TrendDeteriorating, snap.Trend)
}

func TestStaticThresholdBeforeMinSamples(t *testing.T) {
	engine := testEngine(t, Options{})

	result := engine.Compute([]model.RawObservation{obsAt(1.004, 4.8, 100, 0)})
	dev := result.Snapshots[0].PriceDeviation

	assert.InDelta(t, 0.5, dev.DynamicThreshold, 1e-9)
	assert.False(t, dev.Anomalous, "0.4% deviation stays under the 0.5% static threshold")
}

func TestVolatilityNeedsTwoPoints(t *testing.T) {
	engine := testEngine(t, Options{})

	result := engine.Compute([]model.RawObservation{obsAt(1.0, 4.8, 100, 0)})
	vol := result.Snapshots[0].Volatility

	assert.Zero(t, vol.Value)
	assert.False(t, vol.Anomalous)
}

func TestLiquidityBands(t *testing.T) {
	engine := testEngine(t, Options{})

	// 1% ratio is below the 2.5% floor.
	starved := engine.Compute([]model.RawObservation{obsAt(1.0, 1, 100, 0)}).Snapshots[0].LiquidityRatio
	assert.True(t, starved.Anomalous)
	assert.InDelta(t, 0.6, starved.Severity, 1e-9)

	// 20% ratio is above the 15% ceiling.
	overheated := engine.Compute([]model.RawObservation{obsAt(1.0, 20, 100, 0)}).Snapshots[0].LiquidityRatio
	assert.True(t, overheated.Anomalous)
	assert.Greater(t, overheated.Severity, 0.0)
	assert.LessOrEqual(t, overheated.Severity, 1.0)

	// Zero market cap must not blow up.
	empty := engine.Compute([]model.RawObservation{obsAt(1.0, 20, 0, 0)}).Snapshots[0].LiquidityRatio
	assert.True(t, empty.Anomalous)
	assert.InDelta(t, 1.0, empty.Severity, 1e-9)
}

func TestRedeemPressureRequiresBothSignals(t *testing.T) {
	engine := testEngine(t, Options{})
	engine.Compute([]model.RawObservation{obsAt(1.0, 100, 1000, 0)})

	// Volume doubled but price went up: no redemption pressure.
	up := engine.Compute([]model.RawObservation{obsAt(1.0, 200, 1000, 1.0)}).Snapshots[0].RedeemPressure
	assert.Zero(t, up.Value)

	engine.ClearHistory()
	engine.Compute([]model.RawObservation{obsAt(1.0, 100, 1000, 0)})

	// Price down 3% while volume tripled: pressure = 3 * 2 = 6.
	down := engine.Compute([]model.RawObservation{obsAt(0.97, 300, 1000, -3.0)}).Snapshots[0].RedeemPressure
	assert.InDelta(t, 6.0, down.Value, 1e-9)
	assert.True(t, down.Anomalous)
}

func TestWhaleActivityScore(t *testing.T) {
	engine := testEngine(t, Options{})

	obs := obsAt(1.0, 4.8, 100, 0)
	for i := 0; i < 3; i++ {
		obs.LargeTransfers = append(obs.LargeTransfers, model.LargeTransfer{Amount: "5000000"})
	}

	whale := engine.Compute([]model.RawObservation{obs}).Snapshots[0].WhaleActivity
	assert.InDelta(t, 30.0, whale.Value, 1e-9)
	assert.True(t, whale.Anomalous)
}

func TestTrendTransitions(t *testing.T) {
	engine := testEngine(t, Options{})

	// Fewer than five points: stable by definition.
	snap := engine.Compute([]model.RawObservation{obsAt(1.0, 4.8, 100, 0)}).Snapshots[0]
	assert.Equal(t, model.TrendStable, snap.Trend)

	prices := []float64{1.02, 1.015, 1.01, 1.005, 1.002, 1.001}
	var last model.FeatureSnapshot
	for _, price := range prices {
		last = engine.Compute([]model.RawObservation{obsAt(price, 4.8, 100, 0)}).Snapshots[0]
	}
	assert.Equal(t, model.TrendImproving, last.Trend)
}

func TestClearHistory(t *testing.T) {
	engine := testEngine(t, Options{})
	engine.Compute([]model.RawObservation{obsAt(1.0, 4.8, 100, 0)})
	require.Equal(t, 1, engine.WindowLen("usdt"))

	engine.ClearHistory()
	assert.Zero(t, engine.WindowLen("usdt"))
}
