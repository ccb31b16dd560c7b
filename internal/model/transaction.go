package model

import "time"

// TxParams is the raw pending-transaction input from the wallet host.
type TxParams struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Value   string `json:"value"`
	Data    string `json:"data,omitempty"`
	ChainID int64  `json:"chainId"`
}

// TxOperation is the operation inferred from the calldata selector.
type TxOperation string

const (
	OpTransfer TxOperation = "transfer"
	OpApprove  TxOperation = "approve"
	OpUnknown  TxOperation = "unknown"
)

// TransactionContext is the parsed view of a pending transaction.
type TransactionContext struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Value   string `json:"value"`
	Data    string `json:"data,omitempty"`
	ChainID int64  `json:"chainId"`

	AssetRelated bool        `json:"isStablecoinRelated"`
	AssetID      string      `json:"stablecoinId,omitempty"`
	Operation    TxOperation `json:"operation,omitempty"`
	Amount       string      `json:"amount,omitempty"`
}

// Decision is the final verdict on a pending transaction.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionWarn  Decision = "warn"
	DecisionBlock Decision = "block"
)

// TransactionEvaluation is the ephemeral result of evaluating one pending
// transaction. Summarized into an Event; never persisted whole.
type TransactionEvaluation struct {
	Context TransactionContext `json:"context"`
	Report  RiskReport         `json:"riskReport"`
	Bundle  StrategyBundle     `json:"strategyBundle"`

	Decision Decision `json:"decision"`
	Message  string   `json:"message"`
	Details  string   `json:"details"`

	Timestamp time.Time `json:"timestamp"`
}

// AssetRisk is the per-asset summary returned from a full assessment.
type AssetRisk struct {
	ID        string    `json:"id"`
	RiskLevel RiskLevel `json:"riskLevel"`
	RiskScore float64   `json:"riskScore"`
	Summary   string    `json:"summary"`
}

// AssessmentResult is the outcome of one full pipeline run.
type AssessmentResult struct {
	Success   bool        `json:"success"`
	Timestamp time.Time   `json:"timestamp"`
	Assets    []AssetRisk `json:"stablecoins"`
	Error     string      `json:"error,omitempty"`
}
