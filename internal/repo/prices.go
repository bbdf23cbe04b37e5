package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/stores/cache"

	appcache "cryptoetl/internal/cache"
	"cryptoetl/internal/model"
	"cryptoetl/internal/types"
	"cryptoetl/pkg/logging"
)

const (
	SourceCache    = "cache"
	SourceDatabase = "database"
	SourceMixed    = "mixed"
)

// ErrInvalidQuery marks caller mistakes such as a missing asset id.
var ErrInvalidQuery = errors.New("repo: invalid query")

// PricesRepo reads the latest snapshot and per-asset history.
type PricesRepo interface {
	// Latest returns snapshot rows for ids in request order, or every row when
	// ids is empty. Unknown ids are omitted.
	Latest(ctx context.Context, ids []string) (*types.LatestPricesResponse, error)
	// History returns up to limit rows for assetID, newest first.
	History(ctx context.Context, assetID string, limit int) (*types.PriceHistoryResponse, error)
}

type pricesRepo struct {
	history   model.CryptoPricesModel
	latest    model.CryptoPricesLatestModel
	cache     cache.Cache
	snapshots *appcache.SnapshotCache
	ttl       appcache.TTLSet
	logger    logging.Logger
}

func newPricesRepo(deps Dependencies) PricesRepo {
	return &pricesRepo{
		history:   deps.CryptoPricesModel,
		latest:    deps.CryptoPricesLatestModel,
		cache:     deps.Cache,
		snapshots: deps.Snapshots,
		ttl:       deps.TTL,
		logger:    deps.Logger,
	}
}

func (r *pricesRepo) Latest(ctx context.Context, ids []string) (*types.LatestPricesResponse, error) {
	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		rows, err := r.latest.FindByAssetIds(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("load latest prices: %w", err)
		}
		views := make([]types.PriceView, 0, len(rows))
		for _, row := range rows {
			views = append(views, viewFromLatest(row))
		}
		return &types.LatestPricesResponse{Prices: views, Source: SourceDatabase}, nil
	}

	byID := make(map[string]types.PriceView, len(ids))
	missing := ids
	if r.snapshots != nil {
		hits, rest, err := r.snapshots.Get(ctx, ids)
		if err != nil {
			r.logger.Warn(ctx, "snapshot cache read failed, using database", logging.Fields{"error": err.Error()})
		} else {
			for id, entry := range hits {
				byID[id] = viewFromEntry(entry)
			}
			missing = rest
		}
	}

	if len(missing) > 0 {
		rows, err := r.latest.FindByAssetIds(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("load latest prices: %w", err)
		}
		for _, row := range rows {
			byID[row.AssetId] = viewFromLatest(row)
		}
	}

	resp := &types.LatestPricesResponse{Prices: make([]types.PriceView, 0, len(ids))}
	for _, id := range ids {
		if view, ok := byID[id]; ok {
			resp.Prices = append(resp.Prices, view)
		}
	}
	switch {
	case len(missing) == 0:
		resp.Source = SourceCache
	case len(missing) == len(ids):
		resp.Source = SourceDatabase
	default:
		resp.Source = SourceMixed
	}
	return resp, nil
}

func (r *pricesRepo) History(ctx context.Context, assetID string, limit int) (*types.PriceHistoryResponse, error) {
	assetID = strings.ToLower(strings.TrimSpace(assetID))
	if assetID == "" {
		return nil, fmt.Errorf("%w: asset is required", ErrInvalidQuery)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidQuery)
	}

	key := appcache.PriceHistoryKey(assetID, limit)
	var cached types.PriceHistoryResponse
	if ok := r.getCache(ctx, key, &cached); ok {
		return &cached, nil
	}

	rows, err := r.history.FindRecentByAsset(ctx, assetID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", assetID, err)
	}
	resp := &types.PriceHistoryResponse{Asset: assetID, Points: make([]types.PriceView, 0, len(rows))}
	for _, row := range rows {
		resp.Points = append(resp.Points, viewFromHistory(row))
	}
	r.setCache(ctx, key, resp)
	return resp, nil
}

func (r *pricesRepo) getCache(ctx context.Context, key string, v any) bool {
	if r.cache == nil {
		return false
	}
	if err := r.cache.GetCtx(ctx, key, v); err != nil {
		if !r.cache.IsNotFound(err) {
			r.logger.Warn(ctx, "history cache read failed", logging.Fields{"key": key, "error": err.Error()})
		}
		return false
	}
	return true
}

func (r *pricesRepo) setCache(ctx context.Context, key string, v any) {
	ttl := appcache.PriceHistoryTTL(r.ttl)
	if r.cache == nil || ttl <= 0 {
		return
	}
	if err := r.cache.SetWithExpireCtx(ctx, key, v, ttl); err != nil {
		r.logger.Error(ctx, fmt.Errorf("set cache %s: %w", key, err), nil)
	}
}

func normaliseIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
