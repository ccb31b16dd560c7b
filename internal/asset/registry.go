package asset

import (
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// BackingType tags how a stablecoin maintains its peg.
type BackingType string

const (
	FiatBacked   BackingType = "fiat-backed"
	CryptoBacked BackingType = "crypto-backed"
	Algorithmic  BackingType = "algorithmic"
)

// Asset is the static configuration of one monitored stablecoin.
type Asset struct {
	ID        string
	Name      string
	Symbol    string
	Addresses map[int64]common.Address
	Decimals  int
	PegTarget float64
	Backing   BackingType
}

// AddressOn returns the asset's contract address on the given chain.
func (a *Asset) AddressOn(chainID int64) (common.Address, bool) {
	addr, ok := a.Addresses[chainID]
	return addr, ok
}

// Registry resolves monitored assets by id and by contract address.
type Registry struct {
	byID   map[string]*Asset
	byAddr map[addrKey]*Asset
	ids    []string
}

type addrKey struct {
	chainID int64
	addr    common.Address
}

// NewRegistry indexes the given assets.
func NewRegistry(assets []Asset) *Registry {
	r := &Registry{
		byID:   make(map[string]*Asset, len(assets)),
		byAddr: make(map[addrKey]*Asset),
	}
	for i := range assets {
		a := &assets[i]
		r.byID[a.ID] = a
		r.ids = append(r.ids, a.ID)
		for chainID, addr := range a.Addresses {
			r.byAddr[addrKey{chainID: chainID, addr: addr}] = a
		}
	}
	sort.Strings(r.ids)
	return r
}

// ByID looks an asset up by identifier.
func (r *Registry) ByID(id string) (*Asset, bool) {
	a, ok := r.byID[strings.ToLower(id)]
	return a, ok
}

// ByAddress resolves a contract address on a chain to a monitored asset.
// The hex string comparison is case-insensitive.
func (r *Registry) ByAddress(address string, chainID int64) (*Asset, bool) {
	if !common.IsHexAddress(address) {
		return nil, false
	}
	a, ok := r.byAddr[addrKey{chainID: chainID, addr: common.HexToAddress(address)}]
	return a, ok
}

// IDs returns all registered asset ids in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}
