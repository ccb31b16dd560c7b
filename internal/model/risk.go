package model

import (
	"encoding/json"
	"fmt"
)

// RiskLevel is the 5-value ordinal risk grade. The zero value is the lowest
// grade; levels compare with the usual integer ordering.
type RiskLevel int

const (
	RiskVeryLow RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskVeryHigh
)

var riskLevelCodes = [...]string{"A", "B", "C", "D", "E"}

var riskLevelLabels = [...]string{"very low", "low", "medium", "high", "very high"}

// Code returns the persisted letter grade ("A" through "E").
func (l RiskLevel) Code() string {
	if l < RiskVeryLow || l > RiskVeryHigh {
		return "?"
	}
	return riskLevelCodes[l]
}

// Label returns the human-readable grade name.
func (l RiskLevel) Label() string {
	if l < RiskVeryLow || l > RiskVeryHigh {
		return "unknown"
	}
	return riskLevelLabels[l]
}

func (l RiskLevel) String() string { return l.Code() }

// MarshalJSON encodes the level as its letter grade.
func (l RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Code())
}

// UnmarshalJSON decodes a letter grade back into an ordinal level.
func (l *RiskLevel) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	for i, c := range riskLevelCodes {
		if c == code {
			*l = RiskLevel(i)
			return nil
		}
	}
	return fmt.Errorf("model: unknown risk level %q", code)
}

// RiskCategory tags the origin of a risk factor.
type RiskCategory string

const (
	CategoryPriceDeviation RiskCategory = "PRICE_DEVIATION"
	CategoryLiquidity      RiskCategory = "LIQUIDITY_CRISIS"
	CategoryWhaleActivity  RiskCategory = "WHALE_ACTIVITY"
	CategoryRedeemPressure RiskCategory = "REDEEM_PRESSURE"
	CategoryReserveConcern RiskCategory = "RESERVE_CONCERN"
)

// Label returns a display name for the category.
func (c RiskCategory) Label() string {
	switch c {
	case CategoryPriceDeviation:
		return "price deviation"
	case CategoryLiquidity:
		return "liquidity crisis"
	case CategoryWhaleActivity:
		return "whale activity"
	case CategoryRedeemPressure:
		return "redemption pressure"
	case CategoryReserveConcern:
		return "reserve concern"
	}
	return string(c)
}

// TrendDirection labels the evolution of an asset's peg deviation.
type TrendDirection string

const (
	TrendImproving     TrendDirection = "improving"
	TrendStable        TrendDirection = "stable"
	TrendDeteriorating TrendDirection = "deteriorating"
)
