package repo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	appcache "cryptoetl/internal/cache"
	"cryptoetl/internal/config"
	"cryptoetl/internal/model"
	"cryptoetl/pkg/logging"
)

var (
	latestColumns  = []string{"asset_id", "asset_name", "price", "market_cap", "volume_24h", "change_pct_24h", "price_tier", "is_rising", "captured_at", "updated_at"}
	historyColumns = []string{"id", "asset_id", "asset_name", "price", "market_cap", "volume_24h", "change_pct_24h", "price_tier", "is_rising", "captured_at"}
	capturedAt     = time.Date(2024, 3, 9, 5, 0, 0, 0, time.UTC)
)

type fixture struct {
	repo PricesRepo
	mock sqlmock.Sqlmock
	mr   *miniredis.Miniredis
	snap *appcache.SnapshotCache
	logs *logging.Memory
}

func newFixture(t *testing.T, withCache bool) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{mock: mock, logs: logging.NewMemory()}
	ttl := appcache.NewTTLSet(config.CacheTTL{Short: 30, Medium: 600, Long: 7200})
	deps := Dependencies{DBConn: sqlx.NewSqlConnFromDB(db), TTL: ttl, Logger: f.logs}
	if withCache {
		f.mr = miniredis.RunT(t)
		rds := redis.MustNewRedis(redis.RedisConf{Host: f.mr.Addr(), Type: redis.NodeType})
		f.snap = appcache.NewSnapshotCache(rds, ttl)
		deps.Snapshots = f.snap
		deps.Cache = cache.NewNode(rds, syncx.NewSingleFlight(), cache.NewStat("repo-test"), sql.ErrNoRows)
	}
	set, err := New(deps)
	require.NoError(t, err)
	f.repo = set.Prices
	return f
}

func latestRow(id, name string, price driver.Value) []driver.Value {
	return []driver.Value{id, name, price, nil, nil, nil, nil, nil, capturedAt, capturedAt}
}

func TestLatestAllFromDatabase(t *testing.T) {
	f := newFixture(t, false)
	f.mock.ExpectQuery(regexp.QuoteMeta(`FROM "public"."crypto_prices_latest" ORDER BY asset_id`)).
		WillReturnRows(sqlmock.NewRows(latestColumns).
			AddRow(latestRow("bitcoin", "Bitcoin", "9500000.00")...).
			AddRow(latestRow("ether", "Ether", nil)...))

	resp, err := f.repo.Latest(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, SourceDatabase, resp.Source)
	require.Len(t, resp.Prices, 2)
	require.NotNil(t, resp.Prices[0].Price)
	assert.Equal(t, "9500000", *resp.Prices[0].Price)
	assert.Nil(t, resp.Prices[1].Price)
	assert.Equal(t, capturedAt.UnixMilli(), resp.Prices[1].CapturedAt)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestLatestServedFromSnapshotCache(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.snap.Put(context.Background(), []model.PriceRow{
		{AssetId: "bitcoin", AssetName: "Bitcoin", Price: decimal.NewNullDecimal(decimal.NewFromInt(42)), CapturedAt: capturedAt},
		{AssetId: "ether", AssetName: "Ether", CapturedAt: capturedAt},
	}))

	resp, err := f.repo.Latest(context.Background(), []string{"Ether", "bitcoin", "ether"})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, resp.Source)
	require.Len(t, resp.Prices, 2)
	assert.Equal(t, "ether", resp.Prices[0].AssetId)
	assert.Equal(t, "42", *resp.Prices[1].Price)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestLatestMixesCacheAndDatabase(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.snap.Put(context.Background(), []model.PriceRow{
		{AssetId: "bitcoin", AssetName: "Bitcoin", CapturedAt: capturedAt},
	}))
	f.mock.ExpectQuery(regexp.QuoteMeta(`WHERE asset_id = ANY($1)`)).
		WillReturnRows(sqlmock.NewRows(latestColumns).AddRow(latestRow("ether", "Ether", "210000.5")...))

	resp, err := f.repo.Latest(context.Background(), []string{"ether", "bitcoin", "solana"})
	require.NoError(t, err)
	assert.Equal(t, SourceMixed, resp.Source)
	require.Len(t, resp.Prices, 2)
	assert.Equal(t, "ether", resp.Prices[0].AssetId)
	assert.Equal(t, "210000.5", *resp.Prices[0].Price)
	assert.Equal(t, "bitcoin", resp.Prices[1].AssetId)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestLatestFallsBackWhenCacheDown(t *testing.T) {
	f := newFixture(t, true)
	f.mr.Close()
	f.mock.ExpectQuery(regexp.QuoteMeta(`WHERE asset_id = ANY($1)`)).
		WillReturnRows(sqlmock.NewRows(latestColumns).AddRow(latestRow("bitcoin", "Bitcoin", "1")...))

	resp, err := f.repo.Latest(context.Background(), []string{"bitcoin"})
	require.NoError(t, err)
	assert.Equal(t, SourceDatabase, resp.Source)
	assert.Len(t, resp.Prices, 1)
	assert.Equal(t, 1, f.logs.Count(logging.LevelWarn))
}

func TestLatestDatabaseError(t *testing.T) {
	f := newFixture(t, false)
	f.mock.ExpectQuery(`crypto_prices_latest`).WillReturnError(sql.ErrConnDone)
	_, err := f.repo.Latest(context.Background(), []string{"bitcoin"})
	require.ErrorIs(t, err, sql.ErrConnDone)
}

func TestHistoryIsCached(t *testing.T) {
	f := newFixture(t, true)
	f.mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY captured_at DESC`)).
		WithArgs("bitcoin", 2).
		WillReturnRows(sqlmock.NewRows(historyColumns).
			AddRow(2, "bitcoin", "Bitcoin", "200", nil, nil, "1.5", "High", true, capturedAt.Add(time.Hour)).
			AddRow(1, "bitcoin", "Bitcoin", "100", nil, nil, nil, "High", nil, capturedAt))

	first, err := f.repo.History(context.Background(), " Bitcoin", 2)
	require.NoError(t, err)
	require.Len(t, first.Points, 2)
	assert.Equal(t, "200", *first.Points[0].Price)
	assert.True(t, *first.Points[0].IsRising)
	assert.Nil(t, first.Points[1].IsRising)
	assert.True(t, f.mr.Exists(appcache.PriceHistoryKey("bitcoin", 2)))

	second, err := f.repo.History(context.Background(), "bitcoin", 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHistoryValidates(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.repo.History(context.Background(), " ", 10)
	require.ErrorIs(t, err, ErrInvalidQuery)
	_, err = f.repo.History(context.Background(), "bitcoin", 0)
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestNewRequiresConn(t *testing.T) {
	_, err := New(Dependencies{})
	require.Error(t, err)
}

func TestLatestReadsDatabaseAfterInvalidate(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	require.NoError(t, f.snap.Put(ctx, []model.PriceRow{
		{AssetId: "bitcoin", AssetName: "Bitcoin", Price: decimal.NewNullDecimal(decimal.NewFromInt(100)), CapturedAt: capturedAt},
	}))
	require.NoError(t, f.snap.Invalidate(ctx, []string{"bitcoin"}))
	f.mock.ExpectQuery(regexp.QuoteMeta(`WHERE asset_id = ANY($1)`)).
		WillReturnRows(sqlmock.NewRows(latestColumns).AddRow(latestRow("bitcoin", "Bitcoin", "200")...))

	resp, err := f.repo.Latest(ctx, []string{"bitcoin"})
	require.NoError(t, err)
	assert.Equal(t, SourceDatabase, resp.Source)
	require.Len(t, resp.Prices, 1)
	assert.Equal(t, "200", *resp.Prices[0].Price)
	require.NoError(t, f.mock.ExpectationsWereMet())
}
