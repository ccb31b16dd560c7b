package model

import "time"

// TriggerType says what started a strategy execution.
type TriggerType string

const (
	TriggerTransaction TriggerType = "transaction"
	TriggerScheduled   TriggerType = "scheduled"
	TriggerManual      TriggerType = "manual"
)

// ActionResult is the outcome of one executed action.
type ActionResult struct {
	Kind    ActionKind   `json:"type"`
	Target  ActionTarget `json:"target"`
	Result  string       `json:"result"` // success, failed, skipped
	Message string       `json:"message,omitempty"`
}

const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// ExecutionRecord is an immutable audit entry for one strategy execution.
// Appended to a capped index; never mutated after persistence.
type ExecutionRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	AssetID   string    `json:"assetId"`

	TriggerType TriggerType `json:"triggerType"`
	TriggerData string      `json:"triggerData,omitempty"`

	ExecutedStrategies []Strategy     `json:"executedStrategies"`
	Actions            []ActionResult `json:"actions"`
	Success            bool           `json:"success"`
}

// EventType classifies audit events.
type EventType string

const (
	EventRiskDetected    EventType = "risk_detected"
	EventStrategyApplied EventType = "strategy_executed"
	EventTxEvaluated     EventType = "transaction_evaluated"
	EventSystemAlert     EventType = "system_alert"
)

// Event is one entry in the capped audit event log.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	AssetID   string    `json:"assetId"`
	Type      EventType `json:"eventType"`

	Severity    RiskLevel `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}
