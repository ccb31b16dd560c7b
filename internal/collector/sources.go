package collector

import (
	"context"

	"stableguard/internal/model"
)

// Quote is one price-source reading for an asset.
type Quote struct {
	Price          float64
	PriceChange24h float64
	Volume24h      float64
	MarketCap      float64
}

// ChainData is the on-chain slice of an observation.
type ChainData struct {
	TotalSupply    string
	LargeTransfers []model.LargeTransfer
}

// PriceSource retrieves market quotes from an external price API.
type PriceSource interface {
	FetchQuote(ctx context.Context, assetID string) (Quote, error)
}

// ChainSource retrieves on-chain data for a monitored asset.
type ChainSource interface {
	FetchChainData(ctx context.Context, assetID string) (ChainData, error)
}
