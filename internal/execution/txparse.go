package execution

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"stableguard/internal/asset"
	"stableguard/internal/model"
)

// ERC-20 calldata selectors.
const (
	selectorTransfer = "a9059cbb"
	selectorApprove  = "095ea7b3"
)

// erc20CallLen is selector plus two 32-byte words, hex encoded.
const erc20CallLen = 8 + 64 + 64

// ParseTransaction resolves a pending transaction against the asset registry
// and infers the ERC-20 operation from its calldata.
func ParseTransaction(tx model.TxParams, registry *asset.Registry) model.TransactionContext {
	parsed := model.TransactionContext{
		From:    tx.From,
		To:      tx.To,
		Value:   tx.Value,
		Data:    tx.Data,
		ChainID: tx.ChainID,
	}

	a, ok := registry.ByAddress(tx.To, tx.ChainID)
	if !ok {
		return parsed
	}
	parsed.AssetRelated = true
	parsed.AssetID = a.ID
	parsed.Operation = model.OpUnknown

	data := strings.TrimPrefix(strings.ToLower(tx.Data), "0x")
	if len(data) < 8 {
		return parsed
	}

	switch data[:8] {
	case selectorTransfer:
		parsed.Operation = model.OpTransfer
	case selectorApprove:
		parsed.Operation = model.OpApprove
	default:
		return parsed
	}

	if amount, ok := callAmount(data, a.Decimals); ok {
		parsed.Amount = amount
	}
	return parsed
}

// callAmount decodes the second argument word of a transfer/approve call and
// scales it by the token's decimals.
func callAmount(data string, decimals int) (string, bool) {
	if len(data) < erc20CallLen {
		return "", false
	}
	raw, err := hex.DecodeString(data[8+64 : erc20CallLen])
	if err != nil {
		return "", false
	}
	units := new(big.Int).SetBytes(raw)
	return decimal.NewFromBigInt(units, -int32(decimals)).String(), true
}
