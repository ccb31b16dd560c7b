package strategy

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stableguard/internal/model"
)

func reportAt(level model.RiskLevel, score float64) model.RiskReport {
	return model.RiskReport{
		AssetID:   "usdt",
		Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		RiskLevel: level,
		RiskScore: score,
		Summary:   "USDT is at elevated risk",
	}
}

func TestBlockGating(t *testing.T) {
	gen := NewGenerator(zerolog.Nop())
	report := reportAt(model.RiskVeryHigh, 85)

	blocked := gen.Bundle(report, model.StrictBlock)
	assert.False(t, blocked.Behavior.AllowTransaction)
	assert.NotEmpty(t, blocked.Behavior.BlockReason)

	var hasBlock bool
	for _, strat := range blocked.Strategies {
		for _, action := range strat.Actions {
			if action.Kind == model.KindBlockTransaction {
				hasBlock = true
				require.NotNil(t, action.Block)
				assert.Equal(t, model.TargetTransaction, action.Target)
				assert.Equal(t, model.RiskVeryHigh, action.Block.RiskLevel)
			}
		}
	}
	assert.True(t, hasBlock)

	// The same report under none mode must never block.
	open := gen.Bundle(report, model.StrictNone)
	assert.True(t, open.Behavior.AllowTransaction)
	assert.Empty(t, open.Behavior.BlockReason)
	for _, strat := range open.Strategies {
		assert.NotEqual(t, model.StrategyControl, strat.Type)
	}
}

func TestWarnModeAtHighRisk(t *testing.T) {
	gen := NewGenerator(zerolog.Nop())

	bundle := gen.Bundle(reportAt(model.RiskHigh, 65), model.StrictWarn)

	assert.True(t, bundle.Behavior.AllowTransaction)
	assert.True(t, bundle.Behavior.RequireConfirmation)
	assert.Equal(t, "1000", bundle.Behavior.SuggestedAmountLimit)

	kinds := map[model.ActionKind]bool{}
	for _, strat := range bundle.Strategies {
		for _, action := range strat.Actions {
			kinds[action.Kind] = true
		}
	}
	assert.True(t, kinds[model.KindDisplayAlert])
	assert.True(t, kinds[model.KindRequireConfirmation])
	assert.True(t, kinds[model.KindSuggestLimit])
	assert.False(t, kinds[model.KindBlockTransaction])
}

func TestMediumRiskRequiresConfirmationOnly(t *testing.T) {
	gen := NewGenerator(zerolog.Nop())

	bundle := gen.Bundle(reportAt(model.RiskMedium, 45), model.StrictBlock)

	assert.True(t, bundle.Behavior.AllowTransaction, "medium risk never blocks, even in block mode")
	assert.True(t, bundle.Behavior.RequireConfirmation)
	assert.Empty(t, bundle.Behavior.SuggestedAmountLimit)
	assert.True(t, bundle.UI.ShowWarningBadge)
	assert.Equal(t, model.ColorYellow, bundle.UI.DisplayColor)
}

func TestNoneModeMediumRiskStillRequiresConfirmation(t *testing.T) {
	gen := NewGenerator(zerolog.Nop())

	bundle := gen.Bundle(reportAt(model.RiskMedium, 45), model.StrictNone)

	assert.True(t, bundle.Behavior.AllowTransaction)
	assert.True(t, bundle.Behavior.RequireConfirmation)

	var hasConfirm bool
	for _, strat := range bundle.Strategies {
		for _, action := range strat.Actions {
			if action.Kind == model.KindRequireConfirmation {
				hasConfirm = true
				require.NotNil(t, action.Confirm)
				assert.Equal(t, model.TargetTransaction, action.Target)
			}
			assert.NotEqual(t, model.KindBlockTransaction, action.Kind)
		}
	}
	assert.True(t, hasConfirm, "medium risk keeps the confirmation strategy under mode none")

	// High risk under mode none stays information-only.
	high := gen.Bundle(reportAt(model.RiskHigh, 65), model.StrictNone)
	for _, strat := range high.Strategies {
		assert.NotEqual(t, model.StrategyControl, strat.Type)
	}
}

func TestLowRiskIsStatusOnly(t *testing.T) {
	gen := NewGenerator(zerolog.Nop())

	bundle := gen.Bundle(reportAt(model.RiskLow, 25), model.StrictWarn)

	require.Len(t, bundle.Strategies, 1)
	assert.Equal(t, model.StrategyInformation, bundle.Strategies[0].Type)
	assert.Equal(t, model.KindDisplayStatus, bundle.Strategies[0].Actions[0].Kind)
	assert.False(t, bundle.Behavior.RequireConfirmation)
	assert.False(t, bundle.UI.ShowWarningBadge)
	assert.Equal(t, model.ColorGreen, bundle.UI.DisplayColor)
}

func TestBundleSharesReportIdentity(t *testing.T) {
	gen := NewGenerator(zerolog.Nop())
	report := reportAt(model.RiskHigh, 65)

	bundle := gen.Bundle(report, model.StrictWarn)
	assert.Equal(t, report.AssetID, bundle.AssetID)
	assert.Equal(t, report.Timestamp, bundle.Timestamp)
	assert.Equal(t, report.RiskLevel, bundle.RiskLevel)
}

func TestGenerateIsPure(t *testing.T) {
	gen := NewGenerator(zerolog.Nop())
	reports := []model.RiskReport{
		reportAt(model.RiskVeryHigh, 85),
		reportAt(model.RiskMedium, 45),
	}

	first := gen.Generate(reports, model.StrictBlock)
	second := gen.Generate(reports, model.StrictBlock)
	assert.Equal(t, first, second)
}

func TestUIColors(t *testing.T) {
	gen := NewGenerator(zerolog.Nop())

	cases := map[model.RiskLevel]model.DisplayColor{
		model.RiskVeryLow:  model.ColorGreen,
		model.RiskLow:      model.ColorGreen,
		model.RiskMedium:   model.ColorYellow,
		model.RiskHigh:     model.ColorOrange,
		model.RiskVeryHigh: model.ColorRed,
	}
	for level, want := range cases {
		bundle := gen.Bundle(reportAt(level, 50), model.StrictWarn)
		assert.Equal(t, want, bundle.UI.DisplayColor, "level %s", level.Label())
	}
}
