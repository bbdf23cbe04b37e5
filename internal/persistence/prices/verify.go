package prices

import (
	"context"
	"fmt"
	"time"

	"cryptoetl/internal/model"
	"cryptoetl/pkg/logging"
)

// Verification is the result of the post-commit read-back.
type Verification struct {
	Window       time.Duration
	CapturedAt   time.Time
	PerAsset     map[string]int64
	Missing      []string
	SnapshotRows int64
	HistoryTotal int64
	// Err is ErrVerificationMismatch when written assets are not visible, or
	// the query error when the read-back itself failed. nil means verified.
	Err error
}

// OK reports whether verification found every written asset.
func (v Verification) OK() bool { return v.Err == nil }

// Verify reads back the rows of a committed batch: history rows per asset in
// the trailing window, snapshot rows carrying this batch's capture time and
// the total history size. Problems are logged as warnings.
func (s *Service) Verify(ctx context.Context, rows []model.PriceRow) Verification {
	v := Verification{Window: s.verifyWindow, PerAsset: make(map[string]int64, len(rows))}
	if len(rows) == 0 {
		return v
	}
	v.CapturedAt = rows[0].CapturedAt
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.AssetId
	}

	counts, err := s.history.CountByAssetSince(ctx, ids, s.verifyWindow)
	if err != nil {
		return s.verifyFailed(ctx, v, fmt.Errorf("count history by asset: %w", err))
	}
	for _, c := range counts {
		v.PerAsset[c.AssetId] = c.Rows
	}
	for _, id := range ids {
		if v.PerAsset[id] == 0 {
			v.Missing = append(v.Missing, id)
		}
	}

	if v.SnapshotRows, err = s.snapshot.CountCapturedAt(ctx, ids, v.CapturedAt); err != nil {
		return s.verifyFailed(ctx, v, fmt.Errorf("count snapshot rows: %w", err))
	}
	if v.HistoryTotal, err = s.history.CountAll(ctx); err != nil {
		return s.verifyFailed(ctx, v, fmt.Errorf("count history: %w", err))
	}

	fields := logging.Fields{
		"window":        v.Window.String(),
		"per_asset":     v.PerAsset,
		"snapshot_rows": v.SnapshotRows,
		"expected":      len(rows),
		"history_total": v.HistoryTotal,
	}
	if len(v.Missing) > 0 || v.SnapshotRows != int64(len(rows)) {
		v.Err = fmt.Errorf("%w: %d of %d assets missing from history window, %d of %d snapshot rows current",
			ErrVerificationMismatch, len(v.Missing), len(rows), v.SnapshotRows, len(rows))
		fields["missing"] = v.Missing
		s.logger.Warn(ctx, v.Err.Error(), fields)
		return v
	}
	s.logger.Info(ctx, "verification passed", fields)
	return v
}

func (s *Service) verifyFailed(ctx context.Context, v Verification, err error) Verification {
	v.Err = err
	s.logger.Warn(ctx, "verification query failed", logging.Fields{"error": err.Error()})
	return v
}
