package transform

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	errNotFinite  = errors.New("value is not finite")
	errNotNumeric = errors.New("value is not numeric")
)

// toNullDecimal converts a decoded JSON metric. nil is absent; anything that
// is not a finite number is an error.
func toNullDecimal(v any) (decimal.NullDecimal, error) {
	switch val := v.(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.NullDecimal{}, errNotFinite
		}
		return valid(decimal.NewFromFloat(val)), nil
	case float32:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.NullDecimal{}, errNotFinite
		}
		return valid(decimal.NewFromFloat32(val)), nil
	case int:
		return valid(decimal.NewFromInt(int64(val))), nil
	case int32:
		return valid(decimal.NewFromInt32(val)), nil
	case int64:
		return valid(decimal.NewFromInt(val)), nil
	case json.Number:
		return parseNumeric(string(val))
	case string:
		return parseNumeric(val)
	case decimal.Decimal:
		return valid(val), nil
	default:
		return decimal.NullDecimal{}, fmt.Errorf("%w: %T", errNotNumeric, v)
	}
}

func parseNumeric(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, errNotNumeric
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %q", errNotNumeric, s)
	}
	return valid(d), nil
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func roundNull(d decimal.NullDecimal, places int32) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return valid(d.Decimal.Round(places))
}
