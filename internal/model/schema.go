package model

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

// schemaLockKey serializes schema creation between concurrent loaders. The
// advisory lock is transaction scoped.
const schemaLockKey int64 = 0x63727970746f

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS public.crypto_prices (
    id             BIGSERIAL PRIMARY KEY,
    asset_id       VARCHAR(100) NOT NULL,
    asset_name     VARCHAR(200) NOT NULL,
    price          NUMERIC(28, 2),
    market_cap     NUMERIC(28, 2),
    volume_24h     NUMERIC(28, 2),
    change_pct_24h NUMERIC(12, 2),
    price_tier     VARCHAR(16) CHECK (price_tier IN ('High', 'Medium', 'Low')),
    is_rising      BOOLEAN,
    captured_at    TIMESTAMPTZ NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS crypto_prices_asset_captured_uidx
    ON public.crypto_prices (asset_id, captured_at)`,
	`CREATE TABLE IF NOT EXISTS public.crypto_prices_latest (
    asset_id       VARCHAR(100) PRIMARY KEY,
    asset_name     VARCHAR(200) NOT NULL,
    price          NUMERIC(28, 2),
    market_cap     NUMERIC(28, 2),
    volume_24h     NUMERIC(28, 2),
    change_pct_24h NUMERIC(12, 2),
    price_tier     VARCHAR(16) CHECK (price_tier IN ('High', 'Medium', 'Low')),
    is_rising      BOOLEAN,
    captured_at    TIMESTAMPTZ NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
}

const schemaLockStatement = `SELECT pg_advisory_xact_lock($1)`

// EnsureSchema creates both price tables and the history natural-key index
// when they are missing. It must run inside a transaction so the advisory
// lock is released on commit or rollback.
func EnsureSchema(ctx context.Context, conn sqlx.SqlConn) error {
	if _, err := conn.ExecCtx(ctx, schemaLockStatement, schemaLockKey); err != nil {
		return fmt.Errorf("schema lock: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := conn.ExecCtx(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

// SchemaStatements returns the DDL EnsureSchema runs after taking the lock.
func SchemaStatements() []string {
	out := make([]string, len(schemaStatements))
	copy(out, schemaStatements)
	return out
}
