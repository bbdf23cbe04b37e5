package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ CryptoPricesLatestModel = (*customCryptoPricesLatestModel)(nil)

type (
	// CryptoPricesLatestModel is an interface to be customized, add more methods here,
	// and implement the added methods in customCryptoPricesLatestModel.
	CryptoPricesLatestModel interface {
		cryptoPricesLatestModel
		WithSession(session sqlx.Session) CryptoPricesLatestModel
		UpsertBatch(ctx context.Context, rows []PriceRow) (int64, error)
		CountCapturedAt(ctx context.Context, assetIds []string, capturedAt time.Time) (int64, error)
		FindByAssetIds(ctx context.Context, assetIds []string) ([]*CryptoPricesLatest, error)
	}

	customCryptoPricesLatestModel struct {
		*defaultCryptoPricesLatestModel
	}
)

// NewCryptoPricesLatestModel returns a model for the database table.
func NewCryptoPricesLatestModel(conn sqlx.SqlConn) CryptoPricesLatestModel {
	return &customCryptoPricesLatestModel{
		defaultCryptoPricesLatestModel: newCryptoPricesLatestModel(conn),
	}
}

func (m *customCryptoPricesLatestModel) WithSession(session sqlx.Session) CryptoPricesLatestModel {
	return NewCryptoPricesLatestModel(sqlx.NewSqlConnFromSession(session))
}

// UpsertBatch writes rows in one statement, replacing every column of an
// existing asset row and stamping updated_at with the database clock. The
// rows must not repeat an asset id.
func (m *customCryptoPricesLatestModel) UpsertBatch(ctx context.Context, rows []PriceRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	values, args := multiRowValues(rows)
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES %s
ON CONFLICT (asset_id) DO UPDATE SET
    %s,
    updated_at = NOW()`, m.table, joinColumns(), values, upsertAssignments())
	res, err := m.conn.ExecCtx(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountCapturedAt counts snapshot rows among assetIds whose captured_at equals
// capturedAt.
func (m *customCryptoPricesLatestModel) CountCapturedAt(ctx context.Context, assetIds []string, capturedAt time.Time) (int64, error) {
	if len(assetIds) == 0 {
		return 0, nil
	}
	var n int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE asset_id = ANY($1) AND captured_at = $2`, m.table)
	if err := m.conn.QueryRowCtx(ctx, &n, query, pq.Array(assetIds), capturedAt); err != nil {
		return 0, err
	}
	return n, nil
}

// FindByAssetIds returns snapshot rows ordered by asset id. An empty assetIds
// returns every row.
func (m *customCryptoPricesLatestModel) FindByAssetIds(ctx context.Context, assetIds []string) ([]*CryptoPricesLatest, error) {
	var out []*CryptoPricesLatest
	if len(assetIds) == 0 {
		query := fmt.Sprintf("SELECT %s FROM %s ORDER BY asset_id", cryptoPricesLatestRows, m.table)
		if err := m.conn.QueryRowsCtx(ctx, &out, query); err != nil {
			return nil, err
		}
		return out, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE asset_id = ANY($1) ORDER BY asset_id", cryptoPricesLatestRows, m.table)
	if err := m.conn.QueryRowsCtx(ctx, &out, query, pq.Array(assetIds)); err != nil {
		return nil, err
	}
	return out, nil
}

func joinColumns() string {
	return strings.Join(priceRowColumns, ", ")
}

func upsertAssignments() string {
	parts := make([]string, 0, len(priceRowColumns)-1)
	for _, col := range priceRowColumns {
		if col == "asset_id" {
			continue
		}
		parts = append(parts, col+" = EXCLUDED."+col)
	}
	return strings.Join(parts, ",\n    ")
}
