package model

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceRow is the write shape shared by crypto_prices and
// crypto_prices_latest. Nullable columns use SQL null types.
type PriceRow struct {
	AssetId      string              `db:"asset_id"`
	AssetName    string              `db:"asset_name"`
	Price        decimal.NullDecimal `db:"price"`
	MarketCap    decimal.NullDecimal `db:"market_cap"`
	Volume24h    decimal.NullDecimal `db:"volume_24h"`
	ChangePct24h decimal.NullDecimal `db:"change_pct_24h"`
	PriceTier    sql.NullString      `db:"price_tier"`
	IsRising     sql.NullBool        `db:"is_rising"`
	CapturedAt   time.Time           `db:"captured_at"`
}

var priceRowColumns = []string{
	"asset_id",
	"asset_name",
	"price",
	"market_cap",
	"volume_24h",
	"change_pct_24h",
	"price_tier",
	"is_rising",
	"captured_at",
}

// PriceRowColumnCount is the number of bind parameters one PriceRow uses.
var PriceRowColumnCount = len(priceRowColumns)

func (r PriceRow) args() []any {
	return []any{
		r.AssetId,
		r.AssetName,
		r.Price,
		r.MarketCap,
		r.Volume24h,
		r.ChangePct24h,
		r.PriceTier,
		r.IsRising,
		r.CapturedAt,
	}
}

// multiRowValues renders "($1,...,$9),($10,...)" for rows and returns the
// flattened arguments.
func multiRowValues(rows []PriceRow) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, len(rows)*PriceRowColumnCount)
	n := 1
	for i, row := range rows {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		for j := 0; j < PriceRowColumnCount; j++ {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			n++
		}
		sb.WriteByte(')')
		args = append(args, row.args()...)
	}
	return sb.String(), args
}
