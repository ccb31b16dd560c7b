package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "k", []byte(`{"a":1}`)))
	raw, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))

	require.NoError(t, kv.Remove(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCopiesValues(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", value))
	value[0] = 'x'

	stored, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(stored))

	stored[0] = 'y'
	again, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestVersionedEnvelope(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()

	type doc struct {
		Name string `json:"name"`
	}

	require.NoError(t, SetVersioned(ctx, kv, "doc", doc{Name: "usdt"}))

	var out doc
	require.NoError(t, GetVersioned(ctx, kv, "doc", &out))
	assert.Equal(t, "usdt", out.Name)
}

func TestVersionMismatchReadsAsMiss(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()

	stale, err := json.Marshal(envelope{SchemaVersion: SchemaVersion + 1, Payload: []byte(`{"name":"usdt"}`)})
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "doc", stale))

	var out struct {
		Name string `json:"name"`
	}
	err = GetVersioned(ctx, kv, "doc", &out)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.True(t, IsMiss(err))
}

func TestIsMiss(t *testing.T) {
	assert.True(t, IsMiss(ErrNotFound))
	assert.True(t, IsMiss(ErrSchemaMismatch))
	assert.False(t, IsMiss(context.Canceled))
	assert.False(t, IsMiss(nil))
}

func TestKeyBuilders(t *testing.T) {
	assert.Equal(t, "stableguard_risk_usdt", RiskKey("usdt"))
	assert.Equal(t, "stableguard_strategy_dai", StrategyKey("dai"))
	assert.Equal(t, "stableguard_record_abc", RecordKey("abc"))
}
