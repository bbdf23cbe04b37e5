// Package pipeline drives one extract, transform and load cycle and reduces it
// to an Outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cryptoetl/internal/persistence/prices"
	"cryptoetl/pkg/journal"
	"cryptoetl/pkg/logging"
	"cryptoetl/pkg/market"
	"cryptoetl/pkg/transform"
)

const defaultExtractTimeout = 10 * time.Second

// ErrPanic wraps a recovered panic from any stage.
var ErrPanic = errors.New("pipeline: stage panicked")

// Transformer turns raw quotes into records.
type Transformer interface {
	Normalize(ctx context.Context, raw market.RawQuote, now time.Time) transform.Result
}

// Loader persists a batch of records in one transaction.
type Loader interface {
	LoadReport(ctx context.Context, records []transform.Record) (prices.Report, error)
}

// Journal receives one record per run.
type Journal interface {
	WriteRun(rec *journal.RunRecord) (string, error)
}

// Recorder observes run results.
type Recorder interface {
	ObserveRun(success bool, stage string, committed, skipped int, elapsed time.Duration, finishedAt time.Time)
}

// Config wires a Runner. Provider, Transformer and Loader are required.
type Config struct {
	Provider       market.Provider
	Transformer    Transformer
	Loader         Loader
	Journal        Journal
	Metrics        Recorder
	Logger         logging.Logger
	Assets         []string
	VsCurrency     string
	ExtractTimeout time.Duration
	Now            func() time.Time
}

// Outcome is the result of one run.
type Outcome struct {
	RunID       string
	Success     bool
	Committed   int
	State       State
	FailedStage State
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
	Duration    time.Duration
	Skipped     int
	JournalPath string
}

// Runner executes runs one at a time.
type Runner struct {
	provider       market.Provider
	transformer    Transformer
	loader         Loader
	journal        Journal
	metrics        Recorder
	logger         logging.Logger
	assets         []string
	vsCurrency     string
	extractTimeout time.Duration
	now            func() time.Time

	mu sync.Mutex
}

// NewRunner validates cfg and builds a Runner.
func NewRunner(cfg Config) (*Runner, error) {
	switch {
	case cfg.Provider == nil:
		return nil, errors.New("pipeline: provider is required")
	case cfg.Transformer == nil:
		return nil, errors.New("pipeline: transformer is required")
	case cfg.Loader == nil:
		return nil, errors.New("pipeline: loader is required")
	case len(cfg.Assets) == 0:
		return nil, errors.New("pipeline: at least one asset is required")
	case strings.TrimSpace(cfg.VsCurrency) == "":
		return nil, errors.New("pipeline: vs currency is required")
	}
	r := &Runner{
		provider:       cfg.Provider,
		transformer:    cfg.Transformer,
		loader:         cfg.Loader,
		journal:        cfg.Journal,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
		assets:         append([]string(nil), cfg.Assets...),
		vsCurrency:     strings.ToLower(strings.TrimSpace(cfg.VsCurrency)),
		extractTimeout: cfg.ExtractTimeout,
		now:            cfg.Now,
	}
	if r.logger == nil {
		r.logger = logging.NewLogger("pipeline")
	}
	if r.extractTimeout <= 0 {
		r.extractTimeout = defaultExtractTimeout
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

type run struct {
	out    Outcome
	record journal.RunRecord
}

func (r *run) enter(s State) {
	if !CanTransition(r.out.State, s) {
		panic(fmt.Sprintf("illegal transition %s -> %s", r.out.State, s))
	}
	r.out.State = s
}

func (r *run) fail(err error) {
	r.out.FailedStage = r.out.State
	r.out.Err = err
	r.out.State = StateFailed
}

// Run executes one cycle. It never panics and never returns a nil Outcome:
// every error and panic ends in StateFailed.
func (r *Runner) Run(ctx context.Context) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := &run{out: Outcome{
		RunID:     uuid.NewString(),
		State:     StateIdle,
		StartedAt: r.now().UTC(),
	}}
	ctx = logging.WithRunID(ctx, cur.out.RunID)
	r.logger.Info(ctx, "ETL run started", logging.Fields{
		"run_id":      cur.out.RunID,
		"started_at":  cur.out.StartedAt.Format(time.RFC3339),
		"provider":    r.provider.Name(),
		"assets":      strings.Join(r.assets, ","),
		"vs_currency": r.vsCurrency,
	})

	func() {
		defer func() {
			if p := recover(); p != nil {
				cur.fail(fmt.Errorf("%w: %s: %v", ErrPanic, cur.out.State, p))
				r.logger.Error(ctx, cur.out.Err, logging.Fields{"stack": string(debug.Stack())})
			}
		}()
		r.execute(ctx, cur)
	}()

	r.finish(ctx, cur)
	return cur.out
}

func (r *Runner) execute(ctx context.Context, cur *run) {
	cur.enter(StateExtracting)
	raw, err := r.extract(ctx)
	if err != nil {
		cur.fail(err)
		return
	}

	cur.enter(StateTransforming)
	result := r.transformer.Normalize(ctx, raw, r.now())
	cur.out.Skipped = len(result.Skipped)
	summary := result.Summary
	cur.record.Normalize = &summary
	for _, skipped := range result.Skipped {
		cur.record.Skipped = append(cur.record.Skipped, journal.SkippedEntry{
			AssetID: skipped.AssetID,
			Field:   skipped.Field,
			Reason:  skipped.Reason,
		})
	}
	if len(result.Records) == 0 {
		r.logger.Warn(ctx, "no records to load", logging.Fields{"input": len(raw), "skipped": len(result.Skipped)})
		cur.enter(StateSucceeded)
		return
	}

	cur.enter(StateLoading)
	// Once loading starts the transaction runs to commit or rollback even if
	// the caller goes away; the tx timeout still bounds it.
	report, err := r.loader.LoadReport(context.WithoutCancel(ctx), result.Records)
	if err != nil {
		cur.fail(err)
		return
	}
	cur.out.Committed = report.Committed
	cur.record.Persist = &journal.PersistRecord{
		HistoryInserted:   report.HistoryInserted,
		HistoryDuplicates: report.HistoryDuplicates(),
		SnapshotUpserted:  report.SnapshotUpserted,
		ElapsedMs:         report.Elapsed.Milliseconds(),
	}
	cur.record.Verification = verificationRecord(report.Verification)
	cur.enter(StateSucceeded)
}

func (r *Runner) extract(ctx context.Context) (market.RawQuote, error) {
	exCtx, cancel := context.WithTimeout(ctx, r.extractTimeout)
	defer cancel()

	start := time.Now()
	raw, err := r.provider.FetchQuotes(exCtx, r.assets, r.vsCurrency)
	if err != nil {
		if !errors.Is(err, market.ErrExtractionFailed) {
			err = fmt.Errorf("%w: %w", market.ErrExtractionFailed, err)
		}
		return nil, err
	}
	r.logger.Info(ctx, "quotes extracted", logging.Fields{
		"provider":   r.provider.Name(),
		"requested":  len(r.assets),
		"received":   len(raw),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return raw, nil
}

func (r *Runner) finish(ctx context.Context, cur *run) {
	out := &cur.out
	out.FinishedAt = r.now().UTC()
	out.Duration = out.FinishedAt.Sub(out.StartedAt)
	out.Success = out.State == StateSucceeded
	if !out.Success {
		out.Committed = 0
	}

	fields := logging.Fields{
		"run_id":      out.RunID,
		"success":     out.Success,
		"committed":   out.Committed,
		"skipped":     out.Skipped,
		"finished_at": out.FinishedAt.Format(time.RFC3339),
		"duration_ms": out.Duration.Milliseconds(),
	}
	if out.Success {
		r.logger.Info(ctx, "ETL run succeeded", fields)
	} else {
		fields["failed_stage"] = string(out.FailedStage)
		r.logger.Error(ctx, fmt.Errorf("ETL run failed: %w", out.Err), fields)
	}

	if r.metrics != nil {
		r.report(ctx, "metrics", func() {
			r.metrics.ObserveRun(out.Success, string(out.FailedStage), out.Committed, out.Skipped, out.Duration, out.FinishedAt)
		})
	}
	r.report(ctx, "journal", func() { r.writeJournal(ctx, cur) })
}

// report runs a post-run collaborator. A panic there is logged and leaves the
// outcome untouched.
func (r *Runner) report(ctx context.Context, name string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error(ctx, fmt.Errorf("%w: %s: %v", ErrPanic, name, p), logging.Fields{
				"stack": string(debug.Stack()),
			})
		}
	}()
	fn()
}

func (r *Runner) writeJournal(ctx context.Context, cur *run) {
	if r.journal == nil {
		return
	}
	out := cur.out
	rec := cur.record
	rec.RunID = out.RunID
	rec.StartedAt = out.StartedAt
	rec.FinishedAt = out.FinishedAt
	rec.DurationMs = out.Duration.Milliseconds()
	rec.Success = out.Success
	rec.State = string(out.State)
	rec.FailedStage = string(out.FailedStage)
	rec.Provider = r.provider.Name()
	rec.Assets = r.assets
	rec.VsCurrency = r.vsCurrency
	rec.Committed = out.Committed
	if out.Err != nil {
		rec.ErrorMessage = out.Err.Error()
	}
	path, err := r.journal.WriteRun(&rec)
	if err != nil {
		r.logger.Error(ctx, fmt.Errorf("write run journal: %w", err), logging.Fields{"run_id": out.RunID})
		return
	}
	cur.out.JournalPath = path
}

func verificationRecord(v prices.Verification) *journal.VerificationRecord {
	rec := &journal.VerificationRecord{
		OK:           v.OK(),
		Window:       v.Window.String(),
		PerAsset:     v.PerAsset,
		Missing:      v.Missing,
		SnapshotRows: v.SnapshotRows,
		HistoryTotal: v.HistoryTotal,
	}
	if v.Err != nil {
		rec.Error = v.Err.Error()
	}
	return rec
}
