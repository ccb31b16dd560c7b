package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByIDCaseInsensitive(t *testing.T) {
	r := DefaultRegistry()

	for _, id := range []string{"usdt", "USDT", "Usdt"} {
		a, ok := r.ByID(id)
		require.True(t, ok, "lookup %q", id)
		assert.Equal(t, "usdt", a.ID)
	}

	_, ok := r.ByID("shib")
	assert.False(t, ok)
}

func TestByAddressNormalizesCase(t *testing.T) {
	r := DefaultRegistry()

	mixed := "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	lower := "0xdac17f958d2ee523a2206206994597c13d831ec7"

	a, ok := r.ByAddress(mixed, ChainEthereum)
	require.True(t, ok)
	assert.Equal(t, "usdt", a.ID)

	a, ok = r.ByAddress(lower, ChainEthereum)
	require.True(t, ok)
	assert.Equal(t, "usdt", a.ID)
}

func TestByAddressWrongChain(t *testing.T) {
	r := DefaultRegistry()

	_, ok := r.ByAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7", 137)
	assert.False(t, ok)
}

func TestByAddressRejectsGarbage(t *testing.T) {
	r := DefaultRegistry()

	_, ok := r.ByAddress("not-an-address", ChainEthereum)
	assert.False(t, ok)
	_, ok = r.ByAddress("", ChainEthereum)
	assert.False(t, ok)
}

func TestDefaultRegistryContents(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{"busd", "dai", "frax", "usdc", "usdt"}, r.IDs())

	usdc, ok := r.ByID("usdc")
	require.True(t, ok)
	assert.Equal(t, 6, usdc.Decimals)
	assert.Equal(t, 1.0, usdc.PegTarget)

	dai, ok := r.ByID("dai")
	require.True(t, ok)
	assert.Equal(t, 18, dai.Decimals)
	assert.Equal(t, CryptoBacked, dai.Backing)
}
