package transform

import (
	"github.com/shopspring/decimal"

	"cryptoetl/pkg/logging"
)

// Summary aggregates a normalized batch for logs and the run journal.
type Summary struct {
	Input      int                 `json:"input"`
	Accepted   int                 `json:"accepted"`
	Skipped    int                 `json:"skipped"`
	NullCounts map[string]int      `json:"null_counts"`
	MinPrice   decimal.NullDecimal `json:"min_price"`
	MaxPrice   decimal.NullDecimal `json:"max_price"`
	Rising     int                 `json:"rising"`
	Flagged    int                 `json:"flagged"`
}

func summarize(input int, records []Record, skipped int) Summary {
	s := Summary{
		Input:    input,
		Accepted: len(records),
		Skipped:  skipped,
		NullCounts: map[string]int{
			FieldPrice:     0,
			FieldMarketCap: 0,
			FieldVolume24h: 0,
			FieldChange24h: 0,
		},
	}
	for _, r := range records {
		countNull(s.NullCounts, FieldPrice, r.Price)
		countNull(s.NullCounts, FieldMarketCap, r.MarketCap)
		countNull(s.NullCounts, FieldVolume24h, r.Volume24h)
		countNull(s.NullCounts, FieldChange24h, r.ChangePct24h)
		if r.Price.Valid {
			if !s.MinPrice.Valid || r.Price.Decimal.LessThan(s.MinPrice.Decimal) {
				s.MinPrice = r.Price
			}
			if !s.MaxPrice.Valid || r.Price.Decimal.GreaterThan(s.MaxPrice.Decimal) {
				s.MaxPrice = r.Price
			}
		}
		if r.IsRising != nil && *r.IsRising {
			s.Rising++
		}
		if r.Flags != 0 {
			s.Flagged++
		}
	}
	return s
}

func countNull(counts map[string]int, field string, d decimal.NullDecimal) {
	if !d.Valid {
		counts[field]++
	}
}

// Fields renders the summary as structured log fields.
func (s Summary) Fields() logging.Fields {
	return logging.Fields{
		"input":       s.Input,
		"accepted":    s.Accepted,
		"skipped":     s.Skipped,
		"null_counts": s.NullCounts,
		"min_price":   nullString(s.MinPrice),
		"max_price":   nullString(s.MaxPrice),
		"rising":      s.Rising,
		"flagged":     s.Flagged,
	}
}
