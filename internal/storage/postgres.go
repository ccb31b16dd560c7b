package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PoolConfig encapsulates PostgreSQL connectivity.
type PoolConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

const (
	createKVTableSQL = `CREATE TABLE IF NOT EXISTS guard_kv (
        key        TEXT PRIMARY KEY,
        value      JSONB NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	createSamplesTableSQL = `CREATE TABLE IF NOT EXISTS assessment_samples (
        asset_id      TEXT NOT NULL,
        bucket_ts     TIMESTAMPTZ NOT NULL,
        price         NUMERIC(18, 8) NOT NULL,
        deviation_pct NUMERIC(18, 8) NOT NULL,
        volume_24h    NUMERIC(24, 2) NOT NULL,
        market_cap    NUMERIC(24, 2) NOT NULL,
        anomaly_score DOUBLE PRECISION NOT NULL,
        risk_score    DOUBLE PRECISION NOT NULL,
        risk_level    TEXT NOT NULL,
        created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (asset_id, bucket_ts)
    );`

	getKVSQL = `SELECT value FROM guard_kv WHERE key = $1;`

	setKVSQL = `INSERT INTO guard_kv (key, value, updated_at)
    VALUES ($1, $2, now())
    ON CONFLICT (key) DO UPDATE
    SET value = EXCLUDED.value, updated_at = now();`

	removeKVSQL = `DELETE FROM guard_kv WHERE key = $1;`

	insertSampleSQL = `INSERT INTO assessment_samples (
        asset_id,
        bucket_ts,
        price,
        deviation_pct,
        volume_24h,
        market_cap,
        anomaly_score,
        risk_score,
        risk_level
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    ON CONFLICT (asset_id, bucket_ts) DO UPDATE
    SET price         = EXCLUDED.price,
        deviation_pct = EXCLUDED.deviation_pct,
        volume_24h    = EXCLUDED.volume_24h,
        market_cap    = EXCLUDED.market_cap,
        anomaly_score = EXCLUDED.anomaly_score,
        risk_score    = EXCLUDED.risk_score,
        risk_level    = EXCLUDED.risk_level;`

	listSamplesBetweenSQL = `SELECT
        asset_id,
        bucket_ts,
        price,
        deviation_pct,
        volume_24h,
        market_cap,
        anomaly_score,
        risk_score,
        risk_level,
        created_at
    FROM assessment_samples
    WHERE asset_id = $1
      AND bucket_ts >= $2
      AND bucket_ts < $3
    ORDER BY bucket_ts;`

	listRecentSamplesSQL = `SELECT
        asset_id,
        bucket_ts,
        price,
        deviation_pct,
        volume_24h,
        market_cap,
        anomaly_score,
        risk_score,
        risk_level,
        created_at
    FROM assessment_samples
    WHERE asset_id = $1
    ORDER BY bucket_ts DESC
    LIMIT $2;`
)

// SampleStore defines operations for sample persistence.
type SampleStore interface {
	InsertSample(ctx context.Context, sample AssessmentSample) error
	ListSamplesBetween(ctx context.Context, assetID string, from, to time.Time) ([]AssessmentSample, error)
	ListRecentSamples(ctx context.Context, assetID string, limit int) ([]AssessmentSample, error)
}

// Postgres backs the KV contract and the sample log with a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wires a pgx pool into a Postgres store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the backing tables when they do not exist yet.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createKVTableSQL, createSamplesTableSQL} {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying pool resources.
func (p *Postgres) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.pool.QueryRow(ctx, getKVSQL, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	if _, err := p.pool.Exec(ctx, setKVSQL, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Remove(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, removeKVSQL, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// InsertSample persists or updates one assessment sample.
func (p *Postgres) InsertSample(ctx context.Context, sample AssessmentSample) error {
	_, err := p.pool.Exec(ctx, insertSampleSQL,
		sample.AssetID,
		sample.Bucket,
		sample.Price.String(),
		sample.DeviationPct.String(),
		sample.Volume24h.String(),
		sample.MarketCap.String(),
		sample.AnomalyScore,
		sample.RiskScore,
		sample.RiskLevel,
	)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// ListSamplesBetween lists one asset's samples within a time window.
func (p *Postgres) ListSamplesBetween(ctx context.Context, assetID string, from, to time.Time) ([]AssessmentSample, error) {
	rows, err := p.pool.Query(ctx, listSamplesBetweenSQL, assetID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list samples between: %w", err)
	}
	defer rows.Close()
	return collectSamples(rows)
}

// ListRecentSamples lists the most recent samples ordered by descending bucket.
func (p *Postgres) ListRecentSamples(ctx context.Context, assetID string, limit int) ([]AssessmentSample, error) {
	rows, err := p.pool.Query(ctx, listRecentSamplesSQL, assetID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent samples: %w", err)
	}
	defer rows.Close()
	return collectSamples(rows)
}

func collectSamples(rows pgx.Rows) ([]AssessmentSample, error) {
	samples := make([]AssessmentSample, 0)
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

func scanSample(rows pgx.Rows) (AssessmentSample, error) {
	var (
		sample       AssessmentSample
		priceStr     string
		deviationStr string
		volumeStr    string
		capStr       string
	)

	if err := rows.Scan(
		&sample.AssetID,
		&sample.Bucket,
		&priceStr,
		&deviationStr,
		&volumeStr,
		&capStr,
		&sample.AnomalyScore,
		&sample.RiskScore,
		&sample.RiskLevel,
		&sample.CreatedAt,
	); err != nil {
		return AssessmentSample{}, err
	}

	var err error
	if sample.Price, err = decimal.NewFromString(priceStr); err != nil {
		return AssessmentSample{}, fmt.Errorf("parse price: %w", err)
	}
	if sample.DeviationPct, err = decimal.NewFromString(deviationStr); err != nil {
		return AssessmentSample{}, fmt.Errorf("parse deviation pct: %w", err)
	}
	if sample.Volume24h, err = decimal.NewFromString(volumeStr); err != nil {
		return AssessmentSample{}, fmt.Errorf("parse volume: %w", err)
	}
	if sample.MarketCap, err = decimal.NewFromString(capStr); err != nil {
		return AssessmentSample{}, fmt.Errorf("parse market cap: %w", err)
	}

	return sample, nil
}

var _ KV = (*Postgres)(nil)
var _ SampleStore = (*Postgres)(nil)
