package cache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/stores/redis"

	"cryptoetl/internal/config"
	"cryptoetl/internal/model"
)

func newTestCache(t *testing.T) (*SnapshotCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rds := redis.MustNewRedis(redis.RedisConf{Host: mr.Addr(), Type: redis.NodeType})
	return NewSnapshotCache(rds, NewTTLSet(config.CacheTTL{Long: 600})), mr
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 9, 5, 0, 0, 0, time.UTC)

	rows := []model.PriceRow{
		{
			AssetId:    "bitcoin",
			AssetName:  "Bitcoin",
			Price:      decimal.NewNullDecimal(decimal.RequireFromString("9500000.5")),
			PriceTier:  sql.NullString{String: "High", Valid: true},
			IsRising:   sql.NullBool{Bool: true, Valid: true},
			CapturedAt: at,
		},
		{AssetId: "ether", AssetName: "Ether", CapturedAt: at},
	}
	require.NoError(t, c.Put(ctx, rows))

	assert.True(t, mr.Exists(LatestPriceKey("bitcoin")))
	assert.Equal(t, 600*time.Second, mr.TTL(LatestPriceKey("bitcoin")))

	found, missing, err := c.Get(ctx, []string{"bitcoin", "ether", "solana"})
	require.NoError(t, err)
	assert.Equal(t, []string{"solana"}, missing)
	require.Len(t, found, 2)

	btc := found["bitcoin"]
	assert.Equal(t, "Bitcoin", btc.AssetName)
	require.NotNil(t, btc.Price)
	assert.Equal(t, "9500000.5", *btc.Price)
	assert.Nil(t, btc.MarketCap)
	require.NotNil(t, btc.PriceTier)
	assert.Equal(t, "High", *btc.PriceTier)
	require.NotNil(t, btc.IsRising)
	assert.True(t, *btc.IsRising)
	assert.True(t, at.Equal(btc.CapturedAt))

	ether := found["ether"]
	assert.Nil(t, ether.Price)
	assert.Nil(t, ether.PriceTier)
	assert.Nil(t, ether.IsRising)
}

func TestSnapshotCacheIgnoresCorruptEntries(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set(LatestPriceKey("bitcoin"), "not msgpack"))

	found, missing, err := c.Get(context.Background(), []string{"bitcoin"})
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Equal(t, []string{"bitcoin"}, missing)
}

func priceRow(id string, price int64, at time.Time) model.PriceRow {
	return model.PriceRow{
		AssetId:    id,
		AssetName:  id,
		Price:      decimal.NewNullDecimal(decimal.NewFromInt(price)),
		CapturedAt: at,
	}
}

func TestSnapshotCacheKeepsNewestCapture(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	older := time.Date(2024, 3, 9, 5, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	require.NoError(t, c.Put(ctx, []model.PriceRow{priceRow("bitcoin", 200, newer)}))
	require.NoError(t, c.Put(ctx, []model.PriceRow{priceRow("bitcoin", 100, older)}))

	found, _, err := c.Get(ctx, []string{"bitcoin"})
	require.NoError(t, err)
	require.NotNil(t, found["bitcoin"].Price)
	assert.Equal(t, "200", *found["bitcoin"].Price)
	assert.True(t, newer.Equal(found["bitcoin"].CapturedAt))

	require.NoError(t, c.Put(ctx, []model.PriceRow{priceRow("bitcoin", 300, newer)}))
	found, _, err = c.Get(ctx, []string{"bitcoin"})
	require.NoError(t, err)
	assert.Equal(t, "300", *found["bitcoin"].Price)
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 9, 5, 0, 0, 0, time.UTC)
	require.NoError(t, c.Put(ctx, []model.PriceRow{priceRow("bitcoin", 100, at), priceRow("ether", 5, at)}))

	require.NoError(t, c.Invalidate(ctx, []string{"bitcoin"}))
	assert.False(t, mr.Exists(LatestPriceKey("bitcoin")))

	found, missing, err := c.Get(ctx, []string{"bitcoin", "ether"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin"}, missing)
	assert.Contains(t, found, "ether")

	// An older row may be written again once the newer entry is gone.
	require.NoError(t, c.Put(ctx, []model.PriceRow{priceRow("bitcoin", 90, at.Add(-time.Hour))}))
	found, _, err = c.Get(ctx, []string{"bitcoin"})
	require.NoError(t, err)
	assert.Equal(t, "90", *found["bitcoin"].Price)
}

func TestSnapshotCacheDisabled(t *testing.T) {
	var c *SnapshotCache = NewSnapshotCache(nil, TTLSet{})
	assert.Nil(t, c)
	require.NoError(t, c.Put(context.Background(), []model.PriceRow{{AssetId: "x"}}))
	require.NoError(t, c.Invalidate(context.Background(), []string{"x"}))
	_, missing, err := c.Get(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, []string{"x"}, missing)
}

func TestSnapshotCacheRedisDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()
	err := c.Put(context.Background(), []model.PriceRow{{AssetId: "bitcoin", AssetName: "Bitcoin"}})
	require.Error(t, err)
}

func TestKeysAndTTL(t *testing.T) {
	assert.Equal(t, "cryptoetl:price:latest:bitcoin", LatestPriceKey(" Bitcoin "))
	ttl := NewTTLSet(config.CacheTTL{Short: -1})
	assert.Zero(t, ttl.Short)
	assert.Equal(t, 10*time.Minute, ttl.Medium)
	assert.Equal(t, 2*time.Hour, LatestPriceTTL(ttl))
	assert.Zero(t, ttl.Duration("unknown"))
	assert.Equal(t, "cryptoetl:price:history:ethereum:50", PriceHistoryKey("Ethereum", 50))
	assert.Zero(t, PriceHistoryTTL(ttl))
}
