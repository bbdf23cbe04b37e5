package prices

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/breaker"
)

var (
	// ErrStorageUnavailable means the database could not be reached or the
	// connection broke mid-transaction. Nothing was committed.
	ErrStorageUnavailable = errors.New("prices: storage unavailable")
	// ErrSchemaEnsureFailed means the price tables could not be created.
	ErrSchemaEnsureFailed = errors.New("prices: schema ensure failed")
	// ErrBatchWriteFailed means a batched write was rejected and the whole
	// transaction was rolled back.
	ErrBatchWriteFailed = errors.New("prices: batch write failed")
	// ErrVerificationMismatch is reported when post-commit reads do not show
	// every written asset. It never undoes a commit.
	ErrVerificationMismatch = errors.New("prices: verification mismatch")
)

const (
	TableHistory  = "crypto_prices"
	TableSnapshot = "crypto_prices_latest"
)

// BatchWriteError identifies the page whose statement failed.
type BatchWriteError struct {
	Table string
	Page  int
	Rows  int
	Cause error
}

func (e *BatchWriteError) Error() string {
	return fmt.Sprintf("prices: write %s page %d (%d rows): %v", e.Table, e.Page, e.Rows, e.Cause)
}

func (e *BatchWriteError) Unwrap() error { return e.Cause }

func (e *BatchWriteError) Is(target error) bool {
	return target == ErrBatchWriteFailed
}

type schemaError struct {
	cause error
}

func (e *schemaError) Error() string { return e.cause.Error() }

func (e *schemaError) Unwrap() error { return e.cause }

// classify maps a transaction failure onto the package sentinels. failure is
// the error recorded inside the transaction callback, if any; txErr is what
// the transaction helper returned.
func classify(failure, txErr error) error {
	cause := failure
	if cause == nil {
		cause = txErr
	}
	var bwe *BatchWriteError
	isBatch := errors.As(cause, &bwe)
	if isConnectionError(cause) || isConnectionError(txErr) {
		// A dropped connection is never reported as a rejected write.
		if isBatch {
			return fmt.Errorf("%w: %s page %d: %w", ErrStorageUnavailable, bwe.Table, bwe.Page, bwe.Cause)
		}
		var se *schemaError
		if errors.As(cause, &se) {
			return fmt.Errorf("%w: schema: %w", ErrStorageUnavailable, se.cause)
		}
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, cause)
	}
	var se *schemaError
	if errors.As(cause, &se) {
		return fmt.Errorf("%w: %w", ErrSchemaEnsureFailed, se.cause)
	}
	if isBatch {
		return bwe
	}
	return fmt.Errorf("%w: transaction: %w", ErrBatchWriteFailed, cause)
}

// isConnectionError reports whether err means the database connection,
// rather than the statement, failed.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, breaker.ErrServiceUnavailable) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isConnectionClass(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return isConnectionClass(string(pqErr.Code))
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isConnectionClass covers SQLSTATE class 08 and the operator-intervention
// codes a server sends when it drops sessions.
func isConnectionClass(code string) bool {
	if len(code) >= 2 && code[:2] == "08" {
		return true
	}
	switch code {
	case "57P01", "57P02", "57P03":
		return true
	}
	return false
}
