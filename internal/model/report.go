package model

import "time"

// RiskFactor is one ranked contributor to an asset's risk grade.
type RiskFactor struct {
	Category        RiskCategory `json:"category"`
	Severity        float64      `json:"severity"`
	Confidence      float64      `json:"confidence"`
	Evidence        []string     `json:"evidence"`
	RelatedFeatures []string     `json:"relatedFeatures"`
}

// RiskReport is the Risk Analysis Stage output for one asset. Persisted under
// stableguard_risk_<assetId>, overwritten every assessment cycle.
type RiskReport struct {
	AssetID   string    `json:"assetId"`
	Timestamp time.Time `json:"timestamp"`

	RiskLevel RiskLevel `json:"riskLevel"`
	RiskScore float64   `json:"riskScore"`

	PrimaryFactors   []RiskFactor `json:"primaryFactors"`
	SecondaryFactors []RiskFactor `json:"secondaryFactors"`

	Summary          string `json:"summary"`
	DetailedAnalysis string `json:"detailedAnalysis"`

	DataSources    []string `json:"dataSource"`
	AnalysisMethod string   `json:"analysisMethod"`
	Confidence     float64  `json:"confidence"`

	// Display enrichment filled in by the orchestrator after collection.
	CurrentPrice   float64 `json:"currentPrice,omitempty"`
	PriceChange24h float64 `json:"priceChange24h,omitempty"`
}
