package transform

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Tier is the coarse price bucket of a record.
type Tier string

const (
	TierHigh   Tier = "High"
	TierMedium Tier = "Medium"
	TierLow    Tier = "Low"
	// TierUndefined is assigned when the price is absent.
	TierUndefined Tier = ""
)

// Defined reports whether t is one of the concrete buckets.
func (t Tier) Defined() bool {
	return t == TierHigh || t == TierMedium || t == TierLow
}

// Flag marks data-quality conditions on a record.
type Flag uint8

const (
	// FlagTierUndefined is set when the tier could not be derived.
	FlagTierUndefined Flag = 1 << iota
)

// Has reports whether f contains all bits of other.
func (f Flag) Has(other Flag) bool {
	return f&other == other
}

// Record is one normalized asset observation. All numeric fields are already
// rounded; derived fields were computed before rounding.
type Record struct {
	AssetID      string
	DisplayName  string
	Price        decimal.NullDecimal
	MarketCap    decimal.NullDecimal
	Volume24h    decimal.NullDecimal
	ChangePct24h decimal.NullDecimal
	Tier         Tier
	IsRising     *bool
	CapturedAt   time.Time
	Flags        Flag
}

var (
	errMissingAssetID     = errors.New("asset id is empty")
	errMissingDisplayName = errors.New("display name is empty")
	errMissingCapturedAt  = errors.New("capture time is zero")
)

// Validate checks the invariants every emitted record satisfies.
func (r Record) Validate() error {
	switch {
	case r.AssetID == "":
		return errMissingAssetID
	case r.DisplayName == "":
		return errMissingDisplayName
	case r.CapturedAt.IsZero():
		return errMissingCapturedAt
	}
	return nil
}
