package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaVersion is the current persisted-document schema. Bump it whenever a
// persisted shape changes incompatibly; stale documents then read back as
// cache misses and get recomputed.
const SchemaVersion = 1

// ErrSchemaMismatch marks a persisted document written under a different
// schema version. Callers treat it like ErrNotFound.
var ErrSchemaMismatch = errors.New("storage: schema version mismatch")

type envelope struct {
	SchemaVersion int             `json:"schemaVersion"`
	Payload       json.RawMessage `json:"payload"`
}

// SetVersioned writes v wrapped in a versioned envelope.
func SetVersioned(ctx context.Context, kv KV, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return SetJSON(ctx, kv, key, envelope{SchemaVersion: SchemaVersion, Payload: payload})
}

// GetVersioned reads a versioned envelope into out. Returns ErrSchemaMismatch
// when the stored version differs from SchemaVersion.
func GetVersioned(ctx context.Context, kv KV, key string, out any) error {
	var env envelope
	if err := GetJSON(ctx, kv, key, &env); err != nil {
		return err
	}
	if env.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: %s has version %d, want %d", ErrSchemaMismatch, key, env.SchemaVersion, SchemaVersion)
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// IsMiss reports whether err means "no usable value": absent or stale schema.
func IsMiss(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrSchemaMismatch)
}
