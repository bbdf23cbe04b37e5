package repo

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	appcache "cryptoetl/internal/cache"
	"cryptoetl/internal/model"
	"cryptoetl/internal/types"
)

func viewFromLatest(row *model.CryptoPricesLatest) types.PriceView {
	return view(row.AssetId, row.AssetName, row.Price, row.MarketCap, row.Volume24h, row.ChangePct24h,
		row.PriceTier, row.IsRising, row.CapturedAt)
}

func viewFromHistory(row *model.CryptoPrices) types.PriceView {
	return view(row.AssetId, row.AssetName, row.Price, row.MarketCap, row.Volume24h, row.ChangePct24h,
		row.PriceTier, row.IsRising, row.CapturedAt)
}

func viewFromEntry(e appcache.Entry) types.PriceView {
	return types.PriceView{
		AssetId:      e.AssetID,
		AssetName:    e.AssetName,
		Price:        e.Price,
		MarketCap:    e.MarketCap,
		Volume24h:    e.Volume24h,
		ChangePct24h: e.ChangePct24h,
		PriceTier:    e.PriceTier,
		IsRising:     e.IsRising,
		CapturedAt:   e.CapturedAt.UnixMilli(),
	}
}

func view(id, name string, price, mcap, vol, chg decimal.NullDecimal, tier sql.NullString, rising sql.NullBool, at time.Time) types.PriceView {
	v := types.PriceView{
		AssetId:      id,
		AssetName:    name,
		Price:        decimalString(price),
		MarketCap:    decimalString(mcap),
		Volume24h:    decimalString(vol),
		ChangePct24h: decimalString(chg),
		CapturedAt:   at.UnixMilli(),
	}
	if tier.Valid {
		s := tier.String
		v.PriceTier = &s
	}
	if rising.Valid {
		b := rising.Bool
		v.IsRising = &b
	}
	return v
}

func decimalString(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}
