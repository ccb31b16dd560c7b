package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssessmentSample is one persisted per-asset data point from a full
// assessment cycle. Only written when a database is configured; it backs the
// export and show tooling, the pipeline itself never reads it back.
type AssessmentSample struct {
	AssetID      string
	Bucket       time.Time
	Price        decimal.Decimal
	DeviationPct decimal.Decimal
	Volume24h    decimal.Decimal
	MarketCap    decimal.Decimal
	AnomalyScore float64
	RiskScore    float64
	RiskLevel    string
	CreatedAt    time.Time
}
