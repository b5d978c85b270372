package database

import (
	"context"
	"fmt"
)

// migration is one idempotent DDL step
type migration struct {
	name string
	sql  string
}

// migrations are applied in order, every statement is IF NOT EXISTS
var migrations = []migration{
	{
		name: "schemas",
		sql: `
CREATE SCHEMA IF NOT EXISTS data;
CREATE SCHEMA IF NOT EXISTS analytics;`,
	},
	{
		// 원천 가격 (long format, 수집기는 외부 협력자)
		name: "data.raw_prices",
		sql: `
CREATE TABLE IF NOT EXISTS data.raw_prices (
    trade_date   DATE        NOT NULL,
    asset        TEXT        NOT NULL,
    close_price  DOUBLE PRECISION,
    source       TEXT        NOT NULL DEFAULT 'yfinance',
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (trade_date, asset)
);`,
	},
	{
		// 정렬된 영업일 피처 테이블
		name: "data.market_daily",
		sql: `
CREATE TABLE IF NOT EXISTS data.market_daily (
    trade_date        DATE        NOT NULL,
    asset             TEXT        NOT NULL,
    close_price       DOUBLE PRECISION,
    log_return_1d     DOUBLE PRECISION,
    realized_vol_20d  DOUBLE PRECISION,
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (asset, trade_date)
);
CREATE INDEX IF NOT EXISTS idx_market_daily_date ON data.market_daily (trade_date);`,
	},
	{
		name: "data.quality_snapshots",
		sql: `
CREATE TABLE IF NOT EXISTS data.quality_snapshots (
    run_id         UUID        PRIMARY KEY,
    start_date     DATE,
    end_date       DATE,
    total_days     INT         NOT NULL,
    total_assets   INT         NOT NULL,
    valid_assets   INT         NOT NULL,
    quality_score  DOUBLE PRECISION NOT NULL,
    passed         BOOLEAN     NOT NULL,
    coverage       JSONB       NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
	{
		// 적합 모델 스냅샷 (gaussian: mean/covariance, bootstrap: history), 행렬은 row-major
		name: "analytics.model_fits",
		sql: `
CREATE TABLE IF NOT EXISTS analytics.model_fits (
    fit_id        UUID        PRIMARY KEY,
    kind          TEXT        NOT NULL,
    return_field  TEXT        NOT NULL,
    assets        TEXT[]      NOT NULL,
    observations  INT         NOT NULL,
    mean          FLOAT8[],
    covariance    FLOAT8[],
    history       FLOAT8[],
    fitted_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_model_fits_kind_time ON analytics.model_fits (kind, fitted_at DESC);`,
	},
}

// Migrate creates every schema and table the pipeline writes to
// ⭐ SSOT: DDL은 여기서만 정의
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	applied := make([]string, 0, len(migrations))
	for _, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m.sql); err != nil {
			return applied, fmt.Errorf("migration %s: %w", m.name, err)
		}
		applied = append(applied, m.name)
	}
	return applied, nil
}

// MigrationNames lists the migrations in apply order
func MigrationNames() []string {
	names := make([]string, len(migrations))
	for i, m := range migrations {
		names[i] = m.name
	}
	return names
}
