package feature

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"stableguard/internal/asset"
	"stableguard/internal/model"
)

// Tuning constants for the feature stage.
const (
	DefaultWindowSize = 20

	// Dynamic thresholds need this many window points before they replace
	// the static ones.
	thresholdMinSamples = 5
	thresholdMultiplier = 2.0

	trendWindow    = 5
	trendThreshold = 0.1

	staticPriceDeviationPct = 0.5
	staticVolatilityPct     = 2.0
	staticLiquidityPct      = 5.0
	staticRedeemPressure    = 5.0
	staticWhaleScore        = 20.0
	staticConcentration     = 50.0
)

// featureWeights drive the overall anomaly score. The placeholder features
// keep their slots so filling them in later does not reshape the formula.
var featureWeights = map[string]float64{
	model.FeaturePriceDeviation:    3.0,
	model.FeatureVolatility:        2.5,
	model.FeatureLiquidityRatio:    2.0,
	model.FeatureRedeemPressure:    2.5,
	model.FeatureWhaleActivity:     1.5,
	model.FeatureConcentrationRisk: 1.0,
}

// Options tune the feature engine.
type Options struct {
	WindowSize int
}

// Engine is the second pipeline stage: it owns the per-asset historical
// windows and turns raw observations into feature snapshots.
type Engine struct {
	registry   *asset.Registry
	windowSize int
	logger     zerolog.Logger
	windows    map[string]*window
}

// NewEngine constructs a feature engine.
func NewEngine(registry *asset.Registry, opts Options, logger zerolog.Logger) *Engine {
	size := opts.WindowSize
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Engine{
		registry:   registry,
		windowSize: size,
		logger:     logger.With().Str("component", "feature_engine").Logger(),
		windows:    make(map[string]*window),
	}
}

// Compute appends each observation to its asset's window and derives a
// feature snapshot per asset.
func (e *Engine) Compute(observations []model.RawObservation) model.FeatureResult {
	result := model.FeatureResult{
		ComputedAt: time.Now(),
		WindowSize: e.windowSize,
	}

	for _, obs := range observations {
		w := e.windowFor(obs.AssetID)
		// The deviation baseline covers history up to but excluding this
		// observation, so a sudden depeg cannot dilute its own threshold.
		priorPrices := append([]float64(nil), w.prices...)
		w.append(obs.Timestamp, obs.Price, obs.Volume24h, obs.PriceChange24h)
		result.Snapshots = append(result.Snapshots, e.snapshot(obs, w, priorPrices))
	}

	return result
}

// WindowLen reports the current window fill for an asset. Debug surface only.
func (e *Engine) WindowLen(assetID string) int {
	w, ok := e.windows[assetID]
	if !ok {
		return 0
	}
	return w.size()
}

// ClearHistory drops all historical windows.
func (e *Engine) ClearHistory() {
	e.windows = make(map[string]*window)
}

func (e *Engine) windowFor(assetID string) *window {
	w, ok := e.windows[assetID]
	if !ok {
		w = newWindow(e.windowSize)
		e.windows[assetID] = w
	}
	return w
}

func (e *Engine) pegFor(assetID string) float64 {
	if a, ok := e.registry.ByID(assetID); ok && a.PegTarget > 0 {
		return a.PegTarget
	}
	return 1.0
}

func (e *Engine) snapshot(obs model.RawObservation, w *window, priorPrices []float64) model.FeatureSnapshot {
	peg := e.pegFor(obs.AssetID)

	snapshot := model.FeatureSnapshot{
		AssetID:           obs.AssetID,
		Timestamp:         obs.Timestamp,
		PriceDeviation:    priceDeviationFeature(obs, priorPrices, peg),
		Volatility:        volatilityFeature(w),
		LiquidityRatio:    liquidityFeature(obs),
		RedeemPressure:    redeemPressureFeature(obs, w),
		WhaleActivity:     whaleActivityFeature(obs),
		ConcentrationRisk: concentrationFeature(),
	}
	snapshot.OverallAnomalyScore = overallScore(snapshot.Features())
	snapshot.Trend = trendOf(w, peg)

	return snapshot
}

func priceDeviationFeature(obs model.RawObservation, priorPrices []float64, peg float64) model.RiskFeature {
	deviationPct := math.Abs(obs.Price-peg) / peg * 100

	dynamic := staticPriceDeviationPct
	if len(priorPrices) >= thresholdMinSamples {
		dynamic = dynamicDeviationThreshold(priorPrices, peg)
	}

	anomalous := deviationPct > dynamic
	return model.RiskFeature{
		Name:             model.FeaturePriceDeviation,
		Value:            deviationPct,
		Threshold:        staticPriceDeviationPct,
		DynamicThreshold: dynamic,
		Anomalous:        anomalous,
		Severity:         severityOf(deviationPct, dynamic),
		Description:      fmt.Sprintf("price deviates %.3f%% from peg", deviationPct),
	}
}

// dynamicDeviationThreshold is mean + k*stddev of the window's absolute peg
// deviations, scaled to percent.
func dynamicDeviationThreshold(prices []float64, peg float64) float64 {
	deviations := make([]float64, len(prices))
	for i, p := range prices {
		deviations[i] = math.Abs(p - peg)
	}
	return (mean(deviations) + stddev(deviations)*thresholdMultiplier) * 100
}

func volatilityFeature(w *window) model.RiskFeature {
	volatility := 0.0
	if w.size() >= 2 {
		returns := make([]float64, 0, w.size()-1)
		for i := 1; i < w.size(); i++ {
			returns = append(returns, (w.prices[i]-w.prices[i-1])/w.prices[i-1])
		}
		volatility = stddev(returns) * 100
	}

	dynamic := staticVolatilityPct
	if w.size() >= thresholdMinSamples {
		dynamic = math.Max(staticVolatilityPct, volatility*0.8)
	}

	return model.RiskFeature{
		Name:             model.FeatureVolatility,
		Value:            volatility,
		Threshold:        staticVolatilityPct,
		DynamicThreshold: dynamic,
		Anomalous:        volatility > dynamic,
		Severity:         severityOf(volatility, dynamic),
		Description:      fmt.Sprintf("price volatility %.3f%%", volatility),
	}
}

func liquidityFeature(obs model.RawObservation) model.RiskFeature {
	ratio := 0.0
	if obs.MarketCap > 0 {
		ratio = obs.Volume24h / obs.MarketCap * 100
	}

	low := staticLiquidityPct * 0.5
	high := staticLiquidityPct * 3

	// Both starved and overheated liquidity are flagged; the high branch is
	// kept from the reference thresholds pending domain review.
	anomalous := ratio < low || ratio > high

	severity := 0.0
	if ratio < low {
		severity = math.Min((low-ratio)/low, 1.0)
	} else {
		severity = math.Max(math.Min((ratio-high)/high, 1.0), 0)
	}

	return model.RiskFeature{
		Name:             model.FeatureLiquidityRatio,
		Value:            ratio,
		Threshold:        staticLiquidityPct,
		DynamicThreshold: staticLiquidityPct,
		Anomalous:        anomalous,
		Severity:         severity,
		Description:      fmt.Sprintf("liquidity ratio %.2f%%", ratio),
	}
}

func redeemPressureFeature(obs model.RawObservation, w *window) model.RiskFeature {
	volumeChange := 0.0
	if w.size() >= 2 {
		previous := w.volumes[w.size()-2]
		if previous > 0 {
			volumeChange = (obs.Volume24h - previous) / previous * 100
		}
	}

	// Price sliding while volume spikes is the redemption-run proxy.
	pressure := 0.0
	if obs.PriceChange24h < 0 && volumeChange > 50 {
		pressure = math.Abs(obs.PriceChange24h) * (volumeChange / 100)
	}

	return model.RiskFeature{
		Name:             model.FeatureRedeemPressure,
		Value:            pressure,
		Threshold:        staticRedeemPressure,
		DynamicThreshold: staticRedeemPressure,
		Anomalous:        pressure > staticRedeemPressure,
		Severity:         severityOf(pressure, staticRedeemPressure),
		Description:      fmt.Sprintf("redemption pressure index %.2f", pressure),
	}
}

func whaleActivityFeature(obs model.RawObservation) model.RiskFeature {
	score := float64(len(obs.LargeTransfers)) * 10

	return model.RiskFeature{
		Name:             model.FeatureWhaleActivity,
		Value:            score,
		Threshold:        staticWhaleScore,
		DynamicThreshold: staticWhaleScore,
		Anomalous:        score > staticWhaleScore,
		Severity:         severityOf(score, staticWhaleScore),
		Description:      fmt.Sprintf("whale activity score %.0f", score),
	}
}

func concentrationFeature() model.RiskFeature {
	// Placeholder until holder-distribution data lands.
	return model.RiskFeature{
		Name:             model.FeatureConcentrationRisk,
		Value:            0,
		Threshold:        staticConcentration,
		DynamicThreshold: staticConcentration,
		Anomalous:        false,
		Severity:         0,
		Description:      "concentration risk (no data)",
	}
}

// overallScore is the weighted anomaly aggregate on [0,100]. Only anomalous
// features contribute; the denominator always covers every weight.
func overallScore(features []model.RiskFeature) float64 {
	totalScore := 0.0
	totalWeight := 0.0
	for _, f := range features {
		weight, ok := featureWeights[f.Name]
		if !ok {
			weight = 1.0
		}
		if f.Anomalous {
			totalScore += f.Severity * weight * 100
		}
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return math.Min(totalScore/totalWeight, 100)
}

func trendOf(w *window, peg float64) model.TrendDirection {
	if w.size() < trendWindow {
		return model.TrendStable
	}

	recent := w.prices[w.size()-trendWindow:]
	deviation := math.Abs(mean(recent) - peg)

	previousDeviation := deviation
	if w.size() > trendWindow {
		previousDeviation = math.Abs(w.prices[w.size()-trendWindow-1] - peg)
	}

	switch {
	case deviation < previousDeviation*(1-trendThreshold):
		return model.TrendImproving
	case deviation > previousDeviation*(1+trendThreshold):
		return model.TrendDeteriorating
	default:
		return model.TrendStable
	}
}
