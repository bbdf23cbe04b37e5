//go:build integration

package prices

import (
	"context"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"cryptoetl/internal/model"
	"cryptoetl/pkg/logging"
	"cryptoetl/pkg/transform"
)

// Run with: CRYPTOETL_TEST_DSN=postgres://... go test -tags integration ./internal/persistence/prices/
func integrationService(t *testing.T) (*Service, sqlx.SqlConn) {
	t.Helper()
	dsn := os.Getenv("CRYPTOETL_TEST_DSN")
	if dsn == "" {
		t.Skip("CRYPTOETL_TEST_DSN not set")
	}
	conn := sqlx.NewSqlConn("pgx", dsn)
	ctx := context.Background()
	require.NoError(t, model.EnsureSchema(ctx, conn))
	_, err := conn.ExecCtx(ctx, `TRUNCATE public.crypto_prices, public.crypto_prices_latest`)
	require.NoError(t, err)

	svc, err := NewService(Config{SQLConn: conn, Logger: logging.NewMemory(), BatchSize: 1})
	require.NoError(t, err)
	return svc, conn
}

func recordsAt(at time.Time, btc string) []transform.Record {
	return []transform.Record{
		{
			AssetID:     "bitcoin",
			DisplayName: "Bitcoin",
			Price:       decimal.NewNullDecimal(decimal.RequireFromString(btc)),
			Tier:        transform.TierHigh,
			CapturedAt:  at,
		},
		{
			AssetID:     "ether",
			DisplayName: "Ether",
			Tier:        transform.TierUndefined,
			Flags:       transform.FlagTierUndefined,
			CapturedAt:  at,
		},
	}
}

func TestIntegrationIdempotentReload(t *testing.T) {
	svc, conn := integrationService(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Microsecond)

	first, err := svc.LoadReport(ctx, recordsAt(at, "9500000.12"))
	require.NoError(t, err)
	assert.Equal(t, 2, first.Committed)
	assert.True(t, first.Verification.OK(), "%v", first.Verification.Err)

	second, err := svc.LoadReport(ctx, recordsAt(at, "9500000.12"))
	require.NoError(t, err)
	assert.EqualValues(t, 0, second.HistoryInserted)

	total, err := model.NewCryptoPricesModel(conn).CountAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestIntegrationSnapshotLastWriterWins(t *testing.T) {
	svc, conn := integrationService(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Microsecond)

	_, err := svc.Load(ctx, recordsAt(at, "100.00"))
	require.NoError(t, err)
	_, err = svc.Load(ctx, recordsAt(at.Add(time.Second), "200.00"))
	require.NoError(t, err)

	latest, err := model.NewCryptoPricesLatestModel(conn).FindOne(ctx, "bitcoin")
	require.NoError(t, err)
	assert.True(t, latest.Price.Decimal.Equal(decimal.NewFromInt(200)))

	total, err := model.NewCryptoPricesModel(conn).CountAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
}

func TestIntegrationRollbackLeavesNoRows(t *testing.T) {
	svc, conn := integrationService(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Microsecond)

	// Price overflows NUMERIC(28,2) on the second page of the history write.
	records := recordsAt(at, "1")
	records[1].Price = decimal.NewNullDecimal(decimal.RequireFromString("1e40"))
	_, err := svc.Load(ctx, records)
	require.ErrorIs(t, err, ErrBatchWriteFailed)

	total, err := model.NewCryptoPricesModel(conn).CountAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
	rows, err := model.NewCryptoPricesLatestModel(conn).FindByAssetIds(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
