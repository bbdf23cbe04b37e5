package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cryptoetl/pkg/transform"
)

// RunRecord captures one pipeline run end-to-end for audit.
type RunRecord struct {
	RunID        string              `json:"run_id"`
	Sequence     int                 `json:"sequence"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at"`
	DurationMs   int64               `json:"duration_ms"`
	Success      bool                `json:"success"`
	State        string              `json:"state"`
	FailedStage  string              `json:"failed_stage,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
	Provider     string              `json:"provider,omitempty"`
	Assets       []string            `json:"assets,omitempty"`
	VsCurrency   string              `json:"vs_currency,omitempty"`
	Committed    int                 `json:"committed"`
	Normalize    *transform.Summary  `json:"normalize,omitempty"`
	Skipped      []SkippedEntry      `json:"skipped,omitempty"`
	Persist      *PersistRecord      `json:"persist,omitempty"`
	Verification *VerificationRecord `json:"verification,omitempty"`
}

// SkippedEntry is one upstream entry rejected during normalization.
type SkippedEntry struct {
	AssetID string `json:"asset_id"`
	Field   string `json:"field,omitempty"`
	Reason  string `json:"reason"`
}

// PersistRecord summarizes the committed transaction.
type PersistRecord struct {
	HistoryInserted   int64 `json:"history_inserted"`
	HistoryDuplicates int64 `json:"history_duplicates"`
	SnapshotUpserted  int64 `json:"snapshot_upserted"`
	ElapsedMs         int64 `json:"elapsed_ms"`
}

// VerificationRecord is the post-commit read-back.
type VerificationRecord struct {
	OK           bool             `json:"ok"`
	Window       string           `json:"window"`
	PerAsset     map[string]int64 `json:"per_asset,omitempty"`
	Missing      []string         `json:"missing,omitempty"`
	SnapshotRows int64            `json:"snapshot_rows"`
	HistoryTotal int64            `json:"history_total"`
	Error        string           `json:"error,omitempty"`
}

// Writer persists run records to a directory as JSON files, one per run.
type Writer struct {
	dir   string
	mu    sync.Mutex
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer rooted at dir.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		dir = "journal"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: create %s: %w", dir, err)
	}
	return &Writer{dir: dir, nowFn: time.Now}, nil
}

// Dir returns the directory records are written to.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteRun writes rec to run_<yyyymmdd_hhmmss>_<seq>.json and returns the path.
func (w *Writer) WriteRun(rec *RunRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if rec.StartedAt.IsZero() {
		rec.StartedAt = w.nowFn()
	}
	w.seq++
	rec.Sequence = w.seq
	name := fmt.Sprintf("run_%s_%05d.json", rec.StartedAt.UTC().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ReadRun loads a record previously written by WriteRun.
func ReadRun(path string) (*RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("journal: decode %s: %w", path, err)
	}
	return &rec, nil
}
