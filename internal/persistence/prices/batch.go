package prices

import (
	"context"

	"cryptoetl/internal/model"
)

type pageWriter func(ctx context.Context, rows []model.PriceRow) (int64, error)

// writePages sends rows through write in pages of at most size rows and
// returns the summed affected-row count. The first failing page stops the
// loop.
func writePages(ctx context.Context, table string, rows []model.PriceRow, size int, write pageWriter) (int64, error) {
	var total int64
	for page, chunk := range pages(rows, size) {
		n, err := write(ctx, chunk)
		if err != nil {
			return total, &BatchWriteError{Table: table, Page: page, Rows: len(chunk), Cause: err}
		}
		total += n
	}
	return total, nil
}

func pages(rows []model.PriceRow, size int) [][]model.PriceRow {
	if len(rows) == 0 {
		return nil
	}
	if size <= 0 || size >= len(rows) {
		return [][]model.PriceRow{rows}
	}
	out := make([][]model.PriceRow, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}
