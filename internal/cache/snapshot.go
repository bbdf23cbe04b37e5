package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/stores/redis"

	"cryptoetl/internal/model"
)

// Entry is the cached form of a latest-snapshot row. Numerics are kept as
// decimal strings; nil means the value was absent.
type Entry struct {
	AssetID      string    `msgpack:"id"`
	AssetName    string    `msgpack:"name"`
	Price        *string   `msgpack:"price"`
	MarketCap    *string   `msgpack:"mcap"`
	Volume24h    *string   `msgpack:"vol"`
	ChangePct24h *string   `msgpack:"chg"`
	PriceTier    *string   `msgpack:"tier"`
	IsRising     *bool     `msgpack:"rising"`
	CapturedAt   time.Time `msgpack:"at"`
}

// EntryFromRow converts a write row into its cached form.
func EntryFromRow(row model.PriceRow) Entry {
	e := Entry{
		AssetID:      row.AssetId,
		AssetName:    row.AssetName,
		Price:        decimalPtr(row.Price),
		MarketCap:    decimalPtr(row.MarketCap),
		Volume24h:    decimalPtr(row.Volume24h),
		ChangePct24h: decimalPtr(row.ChangePct24h),
		CapturedAt:   row.CapturedAt.UTC(),
	}
	if row.PriceTier.Valid {
		tier := row.PriceTier.String
		e.PriceTier = &tier
	}
	if row.IsRising.Valid {
		rising := row.IsRising.Bool
		e.IsRising = &rising
	}
	return e
}

func decimalPtr(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

// SnapshotCache publishes and reads latest-snapshot entries in Redis.
type SnapshotCache struct {
	rds *redis.Redis
	ttl time.Duration
}

// NewSnapshotCache returns nil when rds is nil so callers can treat a missing
// cache as disabled.
func NewSnapshotCache(rds *redis.Redis, ttl TTLSet) *SnapshotCache {
	if rds == nil {
		return nil
	}
	return &SnapshotCache{rds: rds, ttl: LatestPriceTTL(ttl)}
}

// putScript stores ARGV[2] under KEYS[1] unless the cached entry was
// captured after ARGV[1]. Values are "<captured_at unix micros>|<msgpack>".
var putScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local sep = string.find(cur, '|', 1, true)
  if sep and tonumber(string.sub(cur, 1, sep - 1)) > tonumber(ARGV[1]) then
    return 0
  end
end
local value = ARGV[1] .. '|' .. ARGV[2]
local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call('SET', KEYS[1], value, 'PX', ttl)
else
  redis.call('SET', KEYS[1], value)
end
return 1
`)

// Put stores one entry per row. A row older than the cached entry for the
// same asset is skipped, so out-of-order publishers cannot roll the snapshot
// back. It returns the first error; rows before it may already be written.
func (c *SnapshotCache) Put(ctx context.Context, rows []model.PriceRow) error {
	if c == nil || len(rows) == 0 {
		return nil
	}
	ttl := strconv.FormatInt(c.ttl.Milliseconds(), 10)
	for _, row := range rows {
		data, err := msgpack.Marshal(EntryFromRow(row))
		if err != nil {
			return fmt.Errorf("cache: encode %s: %w", row.AssetId, err)
		}
		at := strconv.FormatInt(row.CapturedAt.UnixMicro(), 10)
		if _, err := c.rds.ScriptRunCtx(ctx, putScript, []string{LatestPriceKey(row.AssetId)}, at, string(data), ttl); err != nil {
			return fmt.Errorf("cache: put %s: %w", row.AssetId, err)
		}
	}
	return nil
}

// Invalidate drops the entries of ids so reads fall through to the database.
func (c *SnapshotCache) Invalidate(ctx context.Context, ids []string) error {
	if c == nil || len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = LatestPriceKey(id)
	}
	if _, err := c.rds.DelCtx(ctx, keys...); err != nil {
		return fmt.Errorf("cache: invalidate: %w", err)
	}
	return nil
}

// Get returns cached entries for ids and the ids that were not cached.
func (c *SnapshotCache) Get(ctx context.Context, ids []string) (map[string]Entry, []string, error) {
	if c == nil {
		return nil, ids, errors.New("cache: snapshot cache disabled")
	}
	if len(ids) == 0 {
		return map[string]Entry{}, nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = LatestPriceKey(id)
	}
	values, err := c.rds.MgetCtx(ctx, keys...)
	if err != nil {
		return nil, ids, fmt.Errorf("cache: mget: %w", err)
	}
	found := make(map[string]Entry, len(ids))
	var missing []string
	for i, id := range ids {
		if i >= len(values) || values[i] == "" {
			missing = append(missing, id)
			continue
		}
		entry, err := decodeEntry(values[i])
		if err != nil {
			missing = append(missing, id)
			continue
		}
		found[id] = entry
	}
	return found, missing, nil
}

func decodeEntry(value string) (Entry, error) {
	var entry Entry
	sep := strings.IndexByte(value, '|')
	if sep < 0 {
		return entry, errors.New("cache: missing capture prefix")
	}
	if err := msgpack.Unmarshal([]byte(value[sep+1:]), &entry); err != nil {
		return entry, err
	}
	return entry, nil
}
