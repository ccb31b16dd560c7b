package storage

// Persisted key names. Asset-scoped keys are suffixed with the asset id,
// record keys with the execution id.
const (
	KeyConfig      = "stableguard_config"
	KeyMetrics     = "stableguard_metrics"
	KeyEvents      = "stableguard_events"
	KeyRecordIndex = "stableguard_record_index"
	KeyLastUpdate  = "stableguard_last_update"

	riskPrefix     = "stableguard_risk_"
	strategyPrefix = "stableguard_strategy_"
	recordPrefix   = "stableguard_record_"
)

// RiskKey returns the Risk Report key for an asset.
func RiskKey(assetID string) string { return riskPrefix + assetID }

// StrategyKey returns the Strategy Bundle key for an asset.
func StrategyKey(assetID string) string { return strategyPrefix + assetID }

// RecordKey returns the Execution Record key for an execution id.
func RecordKey(executionID string) string { return recordPrefix + executionID }
