package model

import "time"

// DataQuality grades a collection cycle by the fraction of assets whose
// quotes came back from the live source.
type DataQuality string

const (
	QualityHigh   DataQuality = "high"
	QualityMedium DataQuality = "medium"
	QualityLow    DataQuality = "low"
)

// LargeTransfer is a single large on-chain movement of a monitored asset.
type LargeTransfer struct {
	TxHash    string    `json:"txHash"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// RawObservation is one normalized market observation for one asset in one
// collection cycle. It lives only for the duration of the cycle.
type RawObservation struct {
	AssetID   string    `json:"assetId"`
	Timestamp time.Time `json:"timestamp"`

	Price          float64 `json:"price"`
	PriceChange24h float64 `json:"priceChange24h"`
	Volume24h      float64 `json:"volume24h"`
	MarketCap      float64 `json:"marketCap"`

	TotalSupply    string          `json:"totalSupply,omitempty"`
	LargeTransfers []LargeTransfer `json:"largeTransfers,omitempty"`

	// 舆情数据，当前为占位值。
	SentimentScore float64 `json:"sentimentScore"`
	NewsCount      int     `json:"newsCount"`
}

// CollectionResult is the Data Collection Stage output for one cycle.
type CollectionResult struct {
	Observations []RawObservation `json:"observations"`
	CollectedAt  time.Time        `json:"collectedAt"`
	Quality      DataQuality      `json:"quality"`
	Errors       []string         `json:"errors,omitempty"`
}
