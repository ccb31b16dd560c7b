package model

import "time"

// Feature names shared between the feature and risk stages.
const (
	FeaturePriceDeviation    = "priceDeviation"
	FeatureVolatility        = "volatility"
	FeatureLiquidityRatio    = "liquidityRatio"
	FeatureRedeemPressure    = "redeemPressure"
	FeatureWhaleActivity     = "whaleActivityScore"
	FeatureConcentrationRisk = "concentrationRisk"
)

// RiskFeature is one computed risk feature for one asset in one cycle.
type RiskFeature struct {
	Name             string  `json:"name"`
	Value            float64 `json:"value"`
	Threshold        float64 `json:"threshold"`
	DynamicThreshold float64 `json:"dynamicThreshold"`
	Anomalous        bool    `json:"isAnomalous"`
	Severity         float64 `json:"severity"`
	Description      string  `json:"description"`
}

// FeatureSnapshot aggregates the six risk features for one asset.
type FeatureSnapshot struct {
	AssetID   string    `json:"assetId"`
	Timestamp time.Time `json:"timestamp"`

	PriceDeviation    RiskFeature `json:"priceDeviation"`
	Volatility        RiskFeature `json:"volatility"`
	LiquidityRatio    RiskFeature `json:"liquidityRatio"`
	RedeemPressure    RiskFeature `json:"redeemPressure"`
	WhaleActivity     RiskFeature `json:"whaleActivityScore"`
	ConcentrationRisk RiskFeature `json:"concentrationRisk"`

	OverallAnomalyScore float64        `json:"overallAnomalyScore"`
	Trend               TrendDirection `json:"trendDirection"`
}

// Features returns the six features in scoring order.
func (s *FeatureSnapshot) Features() []RiskFeature {
	return []RiskFeature{
		s.PriceDeviation,
		s.Volatility,
		s.LiquidityRatio,
		s.RedeemPressure,
		s.WhaleActivity,
		s.ConcentrationRisk,
	}
}

// FeatureResult is the Feature Computation Stage output for one cycle.
type FeatureResult struct {
	Snapshots  []FeatureSnapshot `json:"snapshots"`
	ComputedAt time.Time         `json:"computedAt"`
	WindowSize int               `json:"windowSize"`
}
