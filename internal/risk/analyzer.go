package risk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"stableguard/internal/model"
)

// Score band lower bounds, inclusive. The level is a monotonic function of
// the score through these bands.
const (
	bandLow      = 20.0
	bandMedium   = 40.0
	bandHigh     = 60.0
	bandVeryHigh = 80.0
)

// Primary-factor severity gates per category.
const (
	primaryPriceDeviationGate = 0.5
	primaryLiquidityGate      = 0.6
	primaryRedeemGate         = 0.5
)

// Analyzer is the third pipeline stage: it turns feature snapshots into risk
// reports. It holds no mutable state; identical input yields identical
// output.
type Analyzer struct {
	logger zerolog.Logger
}

// NewAnalyzer constructs an analyzer.
func NewAnalyzer(logger zerolog.Logger) *Analyzer {
	return &Analyzer{logger: logger.With().Str("component", "risk_analyzer").Logger()}
}

// Analyze produces one risk report per snapshot.
func (a *Analyzer) Analyze(snapshots []model.FeatureSnapshot) []model.RiskReport {
	reports := make([]model.RiskReport, 0, len(snapshots))
	for _, snapshot := range snapshots {
		reports = append(reports, a.report(snapshot))
	}
	return reports
}

func (a *Analyzer) report(s model.FeatureSnapshot) model.RiskReport {
	primary := primaryFactors(s)
	secondary := secondaryFactors(s)

	score := riskScore(s, primary, secondary)
	level := LevelForScore(score)

	return model.RiskReport{
		AssetID:          s.AssetID,
		Timestamp:        s.Timestamp,
		RiskLevel:        level,
		RiskScore:        score,
		PrimaryFactors:   primary,
		SecondaryFactors: secondary,
		Summary:          summary(s, level, primary),
		DetailedAnalysis: detailedAnalysis(s, primary, secondary),
		DataSources:      []string{"CoinGecko API", "feature engine"},
		AnalysisMethod:   "multi-factor weighted scoring",
		Confidence:       confidence(s),
	}
}

// LevelForScore maps a 0-100 score onto the five grade bands.
func LevelForScore(score float64) model.RiskLevel {
	switch {
	case score >= bandVeryHigh:
		return model.RiskVeryHigh
	case score >= bandHigh:
		return model.RiskHigh
	case score >= bandMedium:
		return model.RiskMedium
	case score >= bandLow:
		return model.RiskLow
	default:
		return model.RiskVeryLow
	}
}

func primaryFactors(s model.FeatureSnapshot) []model.RiskFactor {
	factors := make([]model.RiskFactor, 0, 4)

	if s.PriceDeviation.Anomalous && s.PriceDeviation.Severity > primaryPriceDeviationGate {
		factors = append(factors, model.RiskFactor{
			Category:   model.CategoryPriceDeviation,
			Severity:   s.PriceDeviation.Severity,
			Confidence: 0.9,
			Evidence: []string{
				fmt.Sprintf("price deviates %.3f%% from peg", s.PriceDeviation.Value),
				fmt.Sprintf("exceeds dynamic threshold %.3f%%", s.PriceDeviation.DynamicThreshold),
				fmt.Sprintf("trend: %s", s.Trend),
			},
			RelatedFeatures: []string{model.FeaturePriceDeviation, model.FeatureVolatility},
		})
	}

	if s.LiquidityRatio.Anomalous && s.LiquidityRatio.Severity > primaryLiquidityGate {
		factors = append(factors, model.RiskFactor{
			Category:   model.CategoryLiquidity,
			Severity:   s.LiquidityRatio.Severity,
			Confidence: 0.75,
			Evidence: []string{
				fmt.Sprintf("liquidity ratio %.2f%%", s.LiquidityRatio.Value),
				"outside the normal band",
				"large orders may not execute cleanly",
			},
			RelatedFeatures: []string{model.FeatureLiquidityRatio},
		})
	}

	if s.RedeemPressure.Anomalous && s.RedeemPressure.Severity > primaryRedeemGate {
		factors = append(factors, model.RiskFactor{
			Category:   model.CategoryRedeemPressure,
			Severity:   s.RedeemPressure.Severity,
			Confidence: 0.7,
			Evidence: []string{
				fmt.Sprintf("redemption pressure index %.2f", s.RedeemPressure.Value),
				"price sliding while volume surges",
				"possible run on redemptions",
			},
			RelatedFeatures: []string{model.FeatureRedeemPressure, model.FeatureVolatility},
		})
	}

	// Whale activity is primary whenever it fires, regardless of severity.
	if s.WhaleActivity.Anomalous {
		factors = append(factors, model.RiskFactor{
			Category:   model.CategoryWhaleActivity,
			Severity:   s.WhaleActivity.Severity,
			Confidence: 0.8,
			Evidence: []string{
				"large on-chain transfers detected",
				fmt.Sprintf("whale activity score %.0f", s.WhaleActivity.Value),
				"may move the market",
			},
			RelatedFeatures: []string{model.FeatureWhaleActivity},
		})
	}

	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Severity > factors[j].Severity
	})

	return factors
}

func secondaryFactors(s model.FeatureSnapshot) []model.RiskFactor {
	factors := make([]model.RiskFactor, 0, 2)

	if s.Volatility.Anomalous && s.Volatility.Severity <= 0.5 {
		factors = append(factors, model.RiskFactor{
			Category:   model.CategoryPriceDeviation,
			Severity:   s.Volatility.Severity,
			Confidence: 0.6,
			Evidence: []string{
				fmt.Sprintf("price volatility %.3f%%", s.Volatility.Value),
				"slightly above normal",
			},
			RelatedFeatures: []string{model.FeatureVolatility},
		})
	}

	if s.ConcentrationRisk.Anomalous {
		factors = append(factors, model.RiskFactor{
			Category:        model.CategoryReserveConcern,
			Severity:        s.ConcentrationRisk.Severity,
			Confidence:      0.5,
			Evidence:        []string{"holder concentration data incomplete"},
			RelatedFeatures: []string{model.FeatureConcentrationRisk},
		})
	}

	return factors
}

func riskScore(s model.FeatureSnapshot, primary, secondary []model.RiskFactor) float64 {
	score := s.OverallAnomalyScore

	for _, f := range primary {
		score += f.Severity * f.Confidence * 20
	}
	for _, f := range secondary {
		score += f.Severity * f.Confidence * 10
	}

	switch s.Trend {
	case model.TrendDeteriorating:
		score *= 1.2
	case model.TrendImproving:
		score *= 0.8
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// confidence rises with the number of independently anomalous features. The
// concentration placeholder is excluded until it carries real data.
func confidence(s model.FeatureSnapshot) float64 {
	anomalous := 0
	for _, f := range []model.RiskFeature{
		s.PriceDeviation, s.Volatility, s.LiquidityRatio, s.RedeemPressure, s.WhaleActivity,
	} {
		if f.Anomalous {
			anomalous++
		}
	}

	switch {
	case anomalous >= 3:
		return 0.95
	case anomalous >= 2:
		return 0.85
	default:
		return 0.8
	}
}

func summary(s model.FeatureSnapshot, level model.RiskLevel, primary []model.RiskFactor) string {
	name := strings.ToUpper(s.AssetID)
	if len(primary) == 0 {
		return fmt.Sprintf("%s is at %s risk; all indicators nominal.", name, level.Label())
	}

	trend := ""
	if s.Trend == model.TrendDeteriorating {
		trend = ", and the trend is deteriorating"
	}
	return fmt.Sprintf("%s is at %s risk; main driver is %s%s.", name, level.Label(), primary[0].Category.Label(), trend)
}

func detailedAnalysis(s model.FeatureSnapshot, primary, secondary []model.RiskFactor) string {
	var b strings.Builder

	fmt.Fprintf(&b, "overall anomaly score: %.1f/100\n", s.OverallAnomalyScore)
	fmt.Fprintf(&b, "trend direction: %s\n", s.Trend)

	if len(primary) > 0 {
		b.WriteString("\nprimary risk factors:\n")
		for _, f := range primary {
			fmt.Fprintf(&b, "- %s (severity %.0f%%)\n", f.Category.Label(), f.Severity*100)
			fmt.Fprintf(&b, "  %s\n", strings.Join(f.Evidence, "; "))
		}
	}

	if len(secondary) > 0 {
		b.WriteString("\nsecondary risk factors:\n")
		for _, f := range secondary {
			fmt.Fprintf(&b, "- %s: %s\n", f.Category.Label(), f.Evidence[0])
		}
	}

	b.WriteString("\nkey features:\n")
	fmt.Fprintf(&b, "- %s\n", s.PriceDeviation.Description)
	fmt.Fprintf(&b, "- %s\n", s.Volatility.Description)
	fmt.Fprintf(&b, "- %s\n", s.LiquidityRatio.Description)

	return b.String()
}
