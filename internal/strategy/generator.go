package strategy

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"stableguard/internal/model"
)

// DefaultAmountLimitUSD is the suggested per-transaction cap applied at high
// risk and above.
const DefaultAmountLimitUSD = 1000.0

// Generator is the fourth pipeline stage: it maps a risk report and the
// user's strictness mode onto a strategy bundle. It performs no I/O and
// keeps no state, so identical inputs always produce identical bundles.
type Generator struct {
	logger zerolog.Logger
}

// NewGenerator constructs a generator.
func NewGenerator(logger zerolog.Logger) *Generator {
	return &Generator{logger: logger.With().Str("component", "strategy_generator").Logger()}
}

// Generate builds one bundle per report.
func (g *Generator) Generate(reports []model.RiskReport, mode model.StrictMode) []model.StrategyBundle {
	bundles := make([]model.StrategyBundle, 0, len(reports))
	for _, report := range reports {
		bundles = append(bundles, g.bundle(report, mode))
	}
	return bundles
}

// Bundle generates the strategy bundle for a single report.
func (g *Generator) Bundle(report model.RiskReport, mode model.StrictMode) model.StrategyBundle {
	return g.bundle(report, mode)
}

func (g *Generator) bundle(report model.RiskReport, mode model.StrictMode) model.StrategyBundle {
	strategies := informationStrategies(report)
	strategies = append(strategies, controlStrategies(report, mode)...)

	return model.StrategyBundle{
		AssetID:    report.AssetID,
		RiskLevel:  report.RiskLevel,
		Timestamp:  report.Timestamp,
		Strategies: strategies,
		UI:         uiRecommendations(report),
		Behavior:   behaviorRecommendations(report, mode),
	}
}

func informationStrategies(report model.RiskReport) []model.Strategy {
	name := strings.ToUpper(report.AssetID)

	switch {
	case report.RiskLevel >= model.RiskHigh:
		return []model.Strategy{{
			ID:          fmt.Sprintf("info-alert-%s", report.AssetID),
			Type:        model.StrategyInformation,
			ActionLevel: model.ActionWarn,
			Priority:    3,
			Title:       fmt.Sprintf("%s risk alert", name),
			Description: report.Summary,
			Actions: []model.Action{{
				Target: model.TargetUser,
				Kind:   model.KindDisplayAlert,
				Display: &model.DisplayParams{
					Level:   "error",
					Message: fmt.Sprintf("%s is at elevated risk, handle with care", name),
					Details: report.DetailedAnalysis,
					Urgent:  true,
				},
			}},
			ExpectedImpact: "user is alerted to the elevated risk immediately",
			Compliant:      true,
		}}
	case report.RiskLevel == model.RiskMedium:
		return []model.Strategy{{
			ID:          fmt.Sprintf("info-warning-%s", report.AssetID),
			Type:        model.StrategyInformation,
			ActionLevel: model.ActionWarn,
			Priority:    2,
			Title:       fmt.Sprintf("%s risk warning", name),
			Description: report.Summary,
			Actions: []model.Action{{
				Target: model.TargetUser,
				Kind:   model.KindDisplayWarning,
				Display: &model.DisplayParams{
					Level:   "warning",
					Message: fmt.Sprintf("%s shows unusual indicators", name),
					Details: report.DetailedAnalysis,
				},
			}},
			ExpectedImpact: "user is informed of the anomaly",
			Compliant:      true,
		}}
	default:
		return []model.Strategy{{
			ID:          fmt.Sprintf("info-status-%s", report.AssetID),
			Type:        model.StrategyInformation,
			ActionLevel: model.ActionMonitor,
			Priority:    1,
			Title:       fmt.Sprintf("%s status", name),
			Description: report.Summary,
			Actions: []model.Action{{
				Target: model.TargetUser,
				Kind:   model.KindDisplayStatus,
				Display: &model.DisplayParams{
					Level:   "info",
					Message: fmt.Sprintf("%s risk level: %s", name, report.RiskLevel.Label()),
				},
			}},
			ExpectedImpact: "routine status visibility",
			Compliant:      true,
		}}
	}
}

func controlStrategies(report model.RiskReport, mode model.StrictMode) []model.Strategy {
	if report.RiskLevel < model.RiskMedium {
		return nil
	}

	name := strings.ToUpper(report.AssetID)

	if mode == model.StrictBlock && report.RiskLevel >= model.RiskHigh {
		return []model.Strategy{{
			ID:          fmt.Sprintf("ctrl-block-%s", report.AssetID),
			Type:        model.StrategyControl,
			ActionLevel: model.ActionBlock,
			Priority:    5,
			Title:       fmt.Sprintf("block %s transactions", name),
			Description: fmt.Sprintf("%s risk reached %s, transactions are blocked under strict mode", name, report.RiskLevel.Label()),
			Actions: []model.Action{{
				Target: model.TargetTransaction,
				Kind:   model.KindBlockTransaction,
				Block: &model.BlockParams{
					Reason:    report.Summary,
					RiskLevel: report.RiskLevel,
				},
			}},
			ExpectedImpact:       "transactions touching this asset are rejected",
			PotentialSideEffects: []string{"legitimate transfers are also blocked until risk subsides"},
			Compliant:            true,
			ComplianceNotes:      "user opted into block mode",
		}}
	}

	// Confirmation applies in warn mode, and at medium risk regardless of
	// mode. High risk under mode none stays information-only.
	if mode != model.StrictWarn && report.RiskLevel != model.RiskMedium {
		return nil
	}

	strategies := []model.Strategy{{
		ID:          fmt.Sprintf("ctrl-confirm-%s", report.AssetID),
		Type:        model.StrategyControl,
		ActionLevel: model.ActionRestrict,
		Priority:    3,
		Title:       fmt.Sprintf("confirm %s transactions", name),
		Description: fmt.Sprintf("%s carries %s risk, transactions need explicit confirmation", name, report.RiskLevel.Label()),
		Actions: []model.Action{{
			Target: model.TargetTransaction,
			Kind:   model.KindRequireConfirmation,
			Confirm: &model.ConfirmParams{
				Message: fmt.Sprintf("%s is at %s risk. Proceed with this transaction?", name, report.RiskLevel.Label()),
				Details: report.Summary,
			},
		}},
		ExpectedImpact: "accidental exposure during a risk event is reduced",
		Compliant:      true,
	}}

	if report.RiskLevel >= model.RiskHigh {
		strategies = append(strategies, model.Strategy{
			ID:          fmt.Sprintf("ctrl-limit-%s", report.AssetID),
			Type:        model.StrategyControl,
			ActionLevel: model.ActionRestrict,
			Priority:    4,
			Title:       fmt.Sprintf("limit %s transaction size", name),
			Description: fmt.Sprintf("suggest capping single transfers at %.0f USD while risk is elevated", DefaultAmountLimitUSD),
			Actions: []model.Action{{
				Target: model.TargetTransaction,
				Kind:   model.KindSuggestLimit,
				Limit: &model.LimitParams{
					SuggestedMaxUSD: DefaultAmountLimitUSD,
					Reason:          fmt.Sprintf("%s risk level is %s", name, report.RiskLevel.Label()),
				},
			}},
			ExpectedImpact:       "loss exposure per transaction is capped",
			PotentialSideEffects: []string{"large legitimate transfers need to be split"},
			Compliant:            true,
		})
	}

	return strategies
}

func uiRecommendations(report model.RiskReport) model.UIRecommendations {
	name := strings.ToUpper(report.AssetID)

	var color model.DisplayColor
	switch report.RiskLevel {
	case model.RiskVeryLow, model.RiskLow:
		color = model.ColorGreen
	case model.RiskMedium:
		color = model.ColorYellow
	case model.RiskHigh:
		color = model.ColorOrange
	default:
		color = model.ColorRed
	}

	return model.UIRecommendations{
		DisplayColor:     color,
		AlertMessage:     fmt.Sprintf("%s risk: %s (score %.0f)", name, report.RiskLevel.Label(), report.RiskScore),
		ShowWarningBadge: report.RiskLevel >= model.RiskMedium,
	}
}

func behaviorRecommendations(report model.RiskReport, mode model.StrictMode) model.BehaviorRecommendations {
	name := strings.ToUpper(report.AssetID)

	blocked := mode == model.StrictBlock && report.RiskLevel >= model.RiskHigh
	rec := model.BehaviorRecommendations{
		AllowTransaction: !blocked,
	}

	if blocked {
		rec.BlockReason = fmt.Sprintf("%s risk level is %s and strict mode is active", name, report.RiskLevel.Label())
		return rec
	}

	if report.RiskLevel >= model.RiskMedium {
		rec.RequireConfirmation = true
		rec.ConfirmationMessage = fmt.Sprintf("%s is at %s risk. Confirm to proceed.", name, report.RiskLevel.Label())
	}

	if report.RiskLevel >= model.RiskHigh {
		rec.SuggestedAmountLimit = fmt.Sprintf("%.0f", DefaultAmountLimitUSD)
	}

	return rec
}
