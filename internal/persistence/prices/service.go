// Package prices persists normalized price batches into the history and
// latest-snapshot tables.
package prices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"cryptoetl/internal/model"
	"cryptoetl/internal/planner"
	"cryptoetl/pkg/logging"
	"cryptoetl/pkg/transform"
)

const (
	defaultBatchSize    = 100
	defaultTxTimeout    = 30 * time.Second
	defaultVerifyWindow = 5 * time.Minute
)

// SnapshotPublisher receives committed snapshot rows. Failures are logged and
// never affect the outcome of a write. When Put fails the published entries
// are invalidated so readers fall back to the database.
type SnapshotPublisher interface {
	Put(ctx context.Context, rows []model.PriceRow) error
	Invalidate(ctx context.Context, ids []string) error
}

// Config enumerates the dependencies and limits of the persistence service.
type Config struct {
	SQLConn       sqlx.SqlConn
	HistoryModel  model.CryptoPricesModel
	SnapshotModel model.CryptoPricesLatestModel
	Publisher     SnapshotPublisher
	Logger        logging.Logger

	BatchSize    int
	TxTimeout    time.Duration
	VerifyWindow time.Duration
}

// Service writes price batches. One call is one transaction.
type Service struct {
	conn      sqlx.SqlConn
	history   model.CryptoPricesModel
	snapshot  model.CryptoPricesLatestModel
	publisher SnapshotPublisher
	logger    logging.Logger

	batchSize    int
	txTimeout    time.Duration
	verifyWindow time.Duration
}

// Report describes a committed write.
type Report struct {
	Committed        int
	HistoryInserted  int64
	SnapshotUpserted int64
	Elapsed          time.Duration
	Verification     Verification
}

// HistoryDuplicates is the number of history rows absorbed by the conflict
// policy, i.e. already present from an earlier write.
func (r Report) HistoryDuplicates() int64 {
	return int64(r.Committed) - r.HistoryInserted
}

// NewService wires a persistence service. Models default to ones built on
// SQLConn.
func NewService(cfg Config) (*Service, error) {
	if cfg.SQLConn == nil {
		return nil, errors.New("prices: sql connection is required")
	}
	s := &Service{
		conn:         cfg.SQLConn,
		history:      cfg.HistoryModel,
		snapshot:     cfg.SnapshotModel,
		publisher:    cfg.Publisher,
		logger:       cfg.Logger,
		batchSize:    cfg.BatchSize,
		txTimeout:    cfg.TxTimeout,
		verifyWindow: cfg.VerifyWindow,
	}
	if s.history == nil {
		s.history = model.NewCryptoPricesModel(cfg.SQLConn)
	}
	if s.snapshot == nil {
		s.snapshot = model.NewCryptoPricesLatestModel(cfg.SQLConn)
	}
	if s.logger == nil {
		s.logger = logging.NewLogger("persistence")
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.txTimeout <= 0 {
		s.txTimeout = defaultTxTimeout
	}
	if s.verifyWindow <= 0 {
		s.verifyWindow = defaultVerifyWindow
	}
	return s, nil
}

// Load plans records and persists them. It returns the committed count.
func (s *Service) Load(ctx context.Context, records []transform.Record) (int, error) {
	report, err := s.LoadReport(ctx, records)
	return report.Committed, err
}

// LoadReport is Load returning the full report.
func (s *Service) LoadReport(ctx context.Context, records []transform.Record) (Report, error) {
	history, snapshot, err := planner.Plan(records)
	if err != nil {
		return Report{}, err
	}
	return s.PersistReport(ctx, history, snapshot)
}

// Persist writes both sets in one transaction and returns the number of
// records committed, which equals len(snapshot).
func (s *Service) Persist(ctx context.Context, history, snapshot []model.PriceRow) (int, error) {
	report, err := s.PersistReport(ctx, history, snapshot)
	return report.Committed, err
}

// PersistReport is Persist returning the full report.
//
// The protocol is: ping, begin, ensure schema, paged history insert that
// ignores natural-key conflicts, paged snapshot upsert, commit. Any failure
// rolls back everything. Verification and cache publication run after the
// commit and cannot fail the call.
func (s *Service) PersistReport(ctx context.Context, history, snapshot []model.PriceRow) (Report, error) {
	if len(history) != len(snapshot) {
		return Report{}, fmt.Errorf("%w: history has %d rows, snapshot has %d", ErrBatchWriteFailed, len(history), len(snapshot))
	}
	if len(snapshot) == 0 {
		s.logger.Warn(ctx, "empty batch, nothing to persist", nil)
		return Report{}, nil
	}

	start := time.Now()
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	if err := s.ping(txCtx); err != nil {
		err = fmt.Errorf("%w: ping: %w", ErrStorageUnavailable, err)
		s.logger.Error(ctx, err, logging.Fields{"stage": "ping"})
		return Report{}, err
	}

	var (
		report  Report
		failure error
	)
	txErr := s.conn.TransactCtx(txCtx, func(ctx context.Context, session sqlx.Session) error {
		if err := model.EnsureSchema(ctx, sqlx.NewSqlConnFromSession(session)); err != nil {
			failure = &schemaError{cause: err}
			return failure
		}
		inserted, err := writePages(ctx, TableHistory, history, s.batchSize, s.history.WithSession(session).InsertBatchIgnore)
		if err != nil {
			failure = err
			return err
		}
		upserted, err := writePages(ctx, TableSnapshot, snapshot, s.batchSize, s.snapshot.WithSession(session).UpsertBatch)
		if err != nil {
			failure = err
			return err
		}
		report.HistoryInserted = inserted
		report.SnapshotUpserted = upserted
		return nil
	})
	if txErr != nil {
		err := classify(failure, txErr)
		s.logger.Error(ctx, err, logging.Fields{
			"stage":      "transaction",
			"rows":       len(snapshot),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
		return Report{}, err
	}

	report.Committed = len(snapshot)
	report.Elapsed = time.Since(start)
	s.logger.Info(ctx, "batch committed", logging.Fields{
		"committed":          report.Committed,
		"history_inserted":   report.HistoryInserted,
		"history_duplicates": report.HistoryDuplicates(),
		"snapshot_upserted":  report.SnapshotUpserted,
		"elapsed_ms":         report.Elapsed.Milliseconds(),
	})

	report.Verification = s.Verify(ctx, snapshot)
	s.publish(ctx, snapshot)
	return report, nil
}

func (s *Service) ping(ctx context.Context) error {
	db, err := s.conn.RawDB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (s *Service) publish(ctx context.Context, rows []model.PriceRow) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Put(ctx, rows); err != nil {
		s.logger.Error(ctx, fmt.Errorf("publish snapshot: %w", err), logging.Fields{"rows": len(rows)})
		ids := make([]string, len(rows))
		for i, row := range rows {
			ids[i] = row.AssetId
		}
		if err := s.publisher.Invalidate(ctx, ids); err != nil {
			s.logger.Error(ctx, fmt.Errorf("invalidate snapshot: %w", err), logging.Fields{"rows": len(rows)})
		}
		return
	}
	s.logger.Debug(ctx, "snapshot published", logging.Fields{"rows": len(rows)})
}
