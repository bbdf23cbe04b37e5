// Package planner turns a normalized batch into the rows written to the
// history and latest-snapshot tables. It performs no I/O.
package planner

import (
	"database/sql"
	"errors"
	"fmt"

	"cryptoetl/internal/model"
	"cryptoetl/pkg/transform"
)

var (
	// ErrDuplicateAsset is returned when two records share an asset id. The
	// snapshot upsert cannot touch the same row twice in one statement.
	ErrDuplicateAsset = errors.New("planner: duplicate asset id")
	// ErrInvalidRecord is returned when a record breaks the non-null invariant.
	ErrInvalidRecord = errors.New("planner: invalid record")
)

// Plan builds the history and snapshot write sets for records. Both slices
// hold the same rows in the same order; they are separate values so either
// can be handed to a different writer.
func Plan(records []transform.Record) (history, snapshot []model.PriceRow, err error) {
	if len(records) == 0 {
		return nil, nil, nil
	}
	seen := make(map[string]int, len(records))
	history = make([]model.PriceRow, 0, len(records))
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%w: record %d: %v", ErrInvalidRecord, i, err)
		}
		if first, dup := seen[rec.AssetID]; dup {
			return nil, nil, fmt.Errorf("%w: %q at records %d and %d", ErrDuplicateAsset, rec.AssetID, first, i)
		}
		seen[rec.AssetID] = i
		history = append(history, Row(rec))
	}
	snapshot = make([]model.PriceRow, len(history))
	copy(snapshot, history)
	return history, snapshot, nil
}

// Row maps one record onto the store's row shape. This is the only place
// where absent values become SQL nulls.
func Row(rec transform.Record) model.PriceRow {
	return model.PriceRow{
		AssetId:      rec.AssetID,
		AssetName:    rec.DisplayName,
		Price:        rec.Price,
		MarketCap:    rec.MarketCap,
		Volume24h:    rec.Volume24h,
		ChangePct24h: rec.ChangePct24h,
		PriceTier:    tierValue(rec.Tier),
		IsRising:     risingValue(rec.IsRising),
		CapturedAt:   rec.CapturedAt,
	}
}

func tierValue(t transform.Tier) sql.NullString {
	if !t.Defined() {
		return sql.NullString{}
	}
	return sql.NullString{String: string(t), Valid: true}
}

func risingValue(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}
