package model

import "time"

// StrictMode is the user-selected enforcement level.
type StrictMode string

const (
	StrictNone  StrictMode = "none"
	StrictWarn  StrictMode = "warn"
	StrictBlock StrictMode = "block"
)

// Valid reports whether the mode is one of the three known values.
func (m StrictMode) Valid() bool {
	switch m {
	case StrictNone, StrictWarn, StrictBlock:
		return true
	}
	return false
}

// Thresholds are the user-tunable warning levels.
type Thresholds struct {
	PriceDeviationWarning  float64 `json:"priceDeviationWarning" mapstructure:"price_deviation_warning"`
	PriceDeviationCritical float64 `json:"priceDeviationCritical" mapstructure:"price_deviation_critical"`
	LargeTransferUSD       float64 `json:"largeTransferUSD" mapstructure:"large_transfer_usd"`
	VolatilityWarning      float64 `json:"volatilityWarning" mapstructure:"volatility_warning"`
}

// GuardConfig is the runtime risk-control configuration. Persisted under
// stableguard_config and reloadable without a restart.
type GuardConfig struct {
	Enabled    bool       `json:"enabled" mapstructure:"enabled"`
	StrictMode StrictMode `json:"strictMode" mapstructure:"strict_mode"`

	MonitoredAssets []string `json:"monitoredAssets" mapstructure:"monitored_assets"`

	Thresholds Thresholds `json:"thresholds" mapstructure:"thresholds"`

	UpdateIntervalMinutes int `json:"updateIntervalMinutes" mapstructure:"update_interval_minutes"`
}

// UpdateInterval converts the minute setting into a duration.
func (c GuardConfig) UpdateInterval() time.Duration {
	minutes := c.UpdateIntervalMinutes
	if minutes <= 0 {
		minutes = 5
	}
	return time.Duration(minutes) * time.Minute
}

// DefaultGuardConfig mirrors the shipped defaults.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Enabled:         true,
		StrictMode:      StrictWarn,
		MonitoredAssets: []string{"usdt", "usdc", "dai"},
		Thresholds: Thresholds{
			PriceDeviationWarning:  0.5,
			PriceDeviationCritical: 2.0,
			LargeTransferUSD:       100_000,
			VolatilityWarning:      0.02,
		},
		UpdateIntervalMinutes: 5,
	}
}
