package model

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ CryptoPricesModel = (*customCryptoPricesModel)(nil)

// AssetCount is a per-asset row count.
type AssetCount struct {
	AssetId string `db:"asset_id"`
	Rows    int64  `db:"row_count"`
}

type (
	// CryptoPricesModel is an interface to be customized, add more methods here,
	// and implement the added methods in customCryptoPricesModel.
	CryptoPricesModel interface {
		cryptoPricesModel
		WithSession(session sqlx.Session) CryptoPricesModel
		InsertBatchIgnore(ctx context.Context, rows []PriceRow) (int64, error)
		CountByAssetSince(ctx context.Context, assetIds []string, window time.Duration) ([]AssetCount, error)
		CountAll(ctx context.Context) (int64, error)
		FindRecentByAsset(ctx context.Context, assetId string, limit int) ([]*CryptoPrices, error)
	}

	customCryptoPricesModel struct {
		*defaultCryptoPricesModel
	}
)

// NewCryptoPricesModel returns a model for the database table.
func NewCryptoPricesModel(conn sqlx.SqlConn) CryptoPricesModel {
	return &customCryptoPricesModel{
		defaultCryptoPricesModel: newCryptoPricesModel(conn),
	}
}

func (m *customCryptoPricesModel) WithSession(session sqlx.Session) CryptoPricesModel {
	return NewCryptoPricesModel(sqlx.NewSqlConnFromSession(session))
}

// InsertBatchIgnore appends rows in one statement. Rows whose
// (asset_id, captured_at) already exists are skipped; the result is the number
// of rows actually inserted.
func (m *customCryptoPricesModel) InsertBatchIgnore(ctx context.Context, rows []PriceRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	values, args := multiRowValues(rows)
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES %s
ON CONFLICT (asset_id, captured_at) DO NOTHING`, m.table, joinColumns(), values)
	res, err := m.conn.ExecCtx(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountByAssetSince counts history rows per asset captured within the trailing
// window of the database clock. Assets with no rows are absent from the result.
func (m *customCryptoPricesModel) CountByAssetSince(ctx context.Context, assetIds []string, window time.Duration) ([]AssetCount, error) {
	if len(assetIds) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT asset_id, COUNT(*) AS row_count
FROM %s
WHERE asset_id = ANY($1)
  AND captured_at >= NOW() - ($2 * INTERVAL '1 second')
GROUP BY asset_id
ORDER BY asset_id`, m.table)
	var out []AssetCount
	if err := m.conn.QueryRowsCtx(ctx, &out, query, pq.Array(assetIds), window.Seconds()); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *customCryptoPricesModel) CountAll(ctx context.Context) (int64, error) {
	var total int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", m.table)
	if err := m.conn.QueryRowCtx(ctx, &total, query); err != nil {
		return 0, err
	}
	return total, nil
}

// FindRecentByAsset returns up to limit history rows for an asset, newest first.
func (m *customCryptoPricesModel) FindRecentByAsset(ctx context.Context, assetId string, limit int) ([]*CryptoPrices, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s
WHERE asset_id = $1
ORDER BY captured_at DESC
LIMIT $2`, cryptoPricesRows, m.table)
	var out []*CryptoPrices
	if err := m.conn.QueryRowsCtx(ctx, &out, query, assetId, limit); err != nil {
		return nil, err
	}
	return out, nil
}
