// Package transform turns raw upstream quotes into validated, enriched
// records.
package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cryptoetl/pkg/logging"
	"cryptoetl/pkg/market"
)

// Metric names as they appear in the summary and in malformed-record errors.
const (
	FieldPrice     = "price"
	FieldMarketCap = "market_cap"
	FieldVolume24h = "volume_24h"
	FieldChange24h = "change_pct_24h"
)

// Config holds the normalization rules.
type Config struct {
	VsCurrency          string
	Precision           int32
	HighTierThreshold   decimal.Decimal
	MediumTierThreshold decimal.Decimal
}

// DefaultConfig returns the stock rules: INR quotes, two fractional digits,
// High above 90000 and Medium above 9000.
func DefaultConfig() Config {
	return Config{
		VsCurrency:          "inr",
		Precision:           2,
		HighTierThreshold:   decimal.NewFromInt(90000),
		MediumTierThreshold: decimal.NewFromInt(9000),
	}
}

// Validate rejects rules that cannot produce sensible records.
func (c Config) Validate() error {
	if strings.TrimSpace(c.VsCurrency) == "" {
		return errors.New("transform: currency is required")
	}
	if c.Precision < 0 {
		return fmt.Errorf("transform: precision must be non-negative, got %d", c.Precision)
	}
	if !c.HighTierThreshold.GreaterThan(c.MediumTierThreshold) {
		return fmt.Errorf("transform: high tier threshold %s must exceed medium threshold %s",
			c.HighTierThreshold, c.MediumTierThreshold)
	}
	return nil
}

// Tier buckets price. An absent price yields TierUndefined.
func (c Config) Tier(price decimal.NullDecimal) Tier {
	switch {
	case !price.Valid:
		return TierUndefined
	case price.Decimal.GreaterThan(c.HighTierThreshold):
		return TierHigh
	case price.Decimal.GreaterThan(c.MediumTierThreshold):
		return TierMedium
	default:
		return TierLow
	}
}

// Result is the output of one Normalize call.
type Result struct {
	Records []Record
	Skipped []*MalformedRecordError
	Summary Summary
}

// Normalizer validates and enriches raw quotes. It is safe for concurrent use.
type Normalizer struct {
	cfg    Config
	fields fieldNames
	logger logging.Logger
}

type fieldNames struct {
	price, marketCap, volume, change string
}

// NewNormalizer validates cfg and returns a Normalizer that logs through
// logger. A nil logger discards events.
func NewNormalizer(cfg Config, logger logging.Logger) (*Normalizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}
	cur := strings.ToLower(strings.TrimSpace(cfg.VsCurrency))
	cfg.VsCurrency = cur
	return &Normalizer{
		cfg: cfg,
		fields: fieldNames{
			price:     cur,
			marketCap: cur + "_market_cap",
			volume:    cur + "_24h_vol",
			change:    cur + "_24h_change",
		},
		logger: logger,
	}, nil
}

// Config returns the rules in effect.
func (n *Normalizer) Config() Config { return n.cfg }

// Normalize converts raw into records stamped with now. Malformed entries are
// logged, reported in Result.Skipped and left out; they never fail the batch.
// Output order follows input order.
func (n *Normalizer) Normalize(ctx context.Context, raw market.RawQuote, now time.Time) Result {
	if now.IsZero() {
		now = time.Now()
	}
	capturedAt := now.UTC().Truncate(time.Microsecond)
	caser := cases.Title(language.Und)

	res := Result{Records: make([]Record, 0, len(raw))}
	seen := make(map[string]struct{}, len(raw))
	for i, quote := range raw {
		rec, err := n.normalizeOne(i, quote, capturedAt, caser, seen)
		if err != nil {
			res.Skipped = append(res.Skipped, err)
			n.logger.Warn(ctx, "skipping malformed record", logging.Fields{
				"index":    err.Index,
				"asset_id": err.AssetID,
				"field":    err.Field,
				"reason":   err.Error(),
			})
			continue
		}
		res.Records = append(res.Records, rec)
		n.logger.Debug(ctx, "normalized record", logging.Fields{
			"asset_id":  rec.AssetID,
			"price":     nullString(rec.Price),
			"tier":      string(rec.Tier),
			"is_rising": rec.IsRising,
		})
	}

	res.Summary = summarize(len(raw), res.Records, len(res.Skipped))
	n.logger.Info(ctx, "normalization complete", res.Summary.Fields())
	return res
}

func (n *Normalizer) normalizeOne(index int, quote market.Quote, capturedAt time.Time, caser cases.Caser, seen map[string]struct{}) (Record, *MalformedRecordError) {
	id := strings.ToLower(strings.TrimSpace(quote.AssetID))
	malformed := func(field, reason string, err error) *MalformedRecordError {
		return &MalformedRecordError{Index: index, AssetID: quote.AssetID, Field: field, Reason: reason, Err: err}
	}
	if id == "" {
		return Record{}, malformed("", "empty asset id", nil)
	}
	if _, dup := seen[id]; dup {
		return Record{}, malformed("", "duplicate asset id", nil)
	}
	values, ok := quote.Values.(map[string]any)
	if !ok {
		return Record{}, malformed("", fmt.Sprintf("metrics must be an object, got %T", quote.Values), nil)
	}

	var metrics [4]decimal.NullDecimal
	keys := [4]struct{ field, key string }{
		{FieldPrice, n.fields.price},
		{FieldMarketCap, n.fields.marketCap},
		{FieldVolume24h, n.fields.volume},
		{FieldChange24h, n.fields.change},
	}
	for i, k := range keys {
		v, err := toNullDecimal(values[k.key])
		if err != nil {
			return Record{}, malformed(k.field, "invalid "+k.key, err)
		}
		metrics[i] = v
	}
	price, marketCap, volume, change := metrics[0], metrics[1], metrics[2], metrics[3]

	rec := Record{
		AssetID:     id,
		DisplayName: displayName(id, caser),
		Tier:        n.cfg.Tier(price),
		CapturedAt:  capturedAt,
	}
	if !rec.Tier.Defined() {
		rec.Flags |= FlagTierUndefined
	}
	if change.Valid {
		rising := change.Decimal.IsPositive()
		rec.IsRising = &rising
	}

	p := n.cfg.Precision
	rec.Price = roundNull(price, p)
	rec.MarketCap = roundNull(marketCap, p)
	rec.Volume24h = roundNull(volume, p)
	rec.ChangePct24h = roundNull(change, p)

	seen[id] = struct{}{}
	return rec, nil
}

func displayName(id string, caser cases.Caser) string {
	name := strings.NewReplacer("-", " ", "_", " ").Replace(id)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return id
	}
	return caser.String(name)
}

func nullString(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}
