package model

import "time"

// StrategyType classifies what a strategy is for.
type StrategyType string

const (
	StrategyInformation StrategyType = "INFORMATION"
	StrategyControl     StrategyType = "CONTROL"
)

// ActionLevel ranks how intrusive a strategy is.
type ActionLevel string

const (
	ActionMonitor  ActionLevel = "MONITOR"
	ActionWarn     ActionLevel = "WARN"
	ActionRestrict ActionLevel = "RESTRICT"
	ActionBlock    ActionLevel = "BLOCK"
)

// ActionTarget names what an action operates on.
type ActionTarget string

const (
	TargetUser        ActionTarget = "user"
	TargetTransaction ActionTarget = "transaction"
)

// ActionKind is the closed set of operations a strategy action can request.
// Adding a kind requires extending the execution stage's switch.
type ActionKind string

const (
	KindDisplayStatus       ActionKind = "display_status"
	KindDisplayWarning      ActionKind = "display_warning"
	KindDisplayAlert        ActionKind = "display_alert"
	KindRequireConfirmation ActionKind = "require_confirmation"
	KindSuggestLimit        ActionKind = "suggest_limit"
	KindBlockTransaction    ActionKind = "block"
)

// DisplayParams carry a UI message for the display_* kinds.
type DisplayParams struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Urgent  bool   `json:"urgent,omitempty"`
}

// ConfirmParams carry the confirmation prompt for require_confirmation.
type ConfirmParams struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// LimitParams carry the suggested cap for suggest_limit.
type LimitParams struct {
	SuggestedMaxUSD float64 `json:"suggestedMaxUSD"`
	Reason          string  `json:"reason"`
}

// BlockParams carry the user-facing reason for block.
type BlockParams struct {
	Reason    string    `json:"reason"`
	RiskLevel RiskLevel `json:"riskLevel"`
}

// Action is a tagged variant: exactly the payload matching Kind is set.
type Action struct {
	Target ActionTarget `json:"target"`
	Kind   ActionKind   `json:"operation"`

	Display *DisplayParams `json:"display,omitempty"`
	Confirm *ConfirmParams `json:"confirm,omitempty"`
	Limit   *LimitParams   `json:"limit,omitempty"`
	Block   *BlockParams   `json:"block,omitempty"`
}

// Strategy is one behavioral response to a risk report.
type Strategy struct {
	ID          string       `json:"id"`
	Type        StrategyType `json:"type"`
	ActionLevel ActionLevel  `json:"actionLevel"`
	Priority    int          `json:"priority"`

	Title       string   `json:"title"`
	Description string   `json:"description"`
	Actions     []Action `json:"actions"`

	ExpectedImpact       string   `json:"expectedImpact"`
	PotentialSideEffects []string `json:"potentialSideEffects,omitempty"`

	Compliant       bool   `json:"isCompliant"`
	ComplianceNotes string `json:"complianceNotes,omitempty"`
}

// DisplayColor is the badge color suggested to the UI layer.
type DisplayColor string

const (
	ColorGreen  DisplayColor = "green"
	ColorYellow DisplayColor = "yellow"
	ColorOrange DisplayColor = "orange"
	ColorRed    DisplayColor = "red"
)

// UIRecommendations are display hints; the UI layer renders them.
type UIRecommendations struct {
	DisplayColor     DisplayColor `json:"displayColor"`
	AlertMessage     string       `json:"alertMessage"`
	ShowWarningBadge bool         `json:"showWarningBadge"`
}

// BehaviorRecommendations drive the transaction decision.
type BehaviorRecommendations struct {
	AllowTransaction     bool   `json:"allowTransaction"`
	RequireConfirmation  bool   `json:"requireConfirmation"`
	ConfirmationMessage  string `json:"confirmationMessage,omitempty"`
	SuggestedAmountLimit string `json:"suggestedAmountLimit,omitempty"`
	BlockReason          string `json:"blockReason,omitempty"`
}

// StrategyBundle is the Strategy Generation Stage output for one asset.
// Persisted under stableguard_strategy_<assetId>.
type StrategyBundle struct {
	AssetID   string    `json:"assetId"`
	RiskLevel RiskLevel `json:"riskLevel"`
	Timestamp time.Time `json:"timestamp"`

	Strategies []Strategy              `json:"strategies"`
	UI         UIRecommendations       `json:"uiRecommendations"`
	Behavior   BehaviorRecommendations `json:"behaviorRecommendations"`
}
