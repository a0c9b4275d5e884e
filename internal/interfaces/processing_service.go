package interfaces

import (
	"context"

	"github.com/ternarybob/fueltrack/internal/models"
)

// TriggerResult is the structured outcome of a manual trigger request. The
// HTTP layer needs success/already-running rather than an error.
type TriggerResult struct {
	Started        bool   `json:"started"`
	AlreadyRunning bool   `json:"already_running"`
	Message        string `json:"message"`
}

// CategoryReport describes the new rows detected for one data category since
// the previous baseline.
type CategoryReport struct {
	NewRecords int                 `json:"new_records"`
	NewData    []map[string]string `json:"new_data"`
}

// CompareEntry is one record flagged by the content-aware comparison.
type CompareEntry struct {
	Key     string      `json:"key"`
	Changed bool        `json:"changed"` // false = key absent from prior snapshot
	Record  interface{} `json:"record"`
}

// CompareReport is the result of the content-aware database comparison. This
// strategy is deliberately separate from the count-based heuristic and must
// not be merged with it.
type CompareReport struct {
	Flights []CompareEntry `json:"flights"`
	Fuel    []CompareEntry `json:"fuel"`
}

// ProcessingService coordinates the external extraction pipeline, the run
// history ledger, and change detection.
type ProcessingService interface {
	// Initialize validates the interpreter, every script file, and every
	// spreadsheet path, and establishes the initial record baseline.
	// Errors are fatal to process bootstrap.
	Initialize(ctx context.Context) error

	// RunDataProcessing executes the full pipeline once. Returns immediately
	// if a run is already in progress (single-flight).
	RunDataProcessing(ctx context.Context)

	// TriggerDataProcessing is the manual entry point; it never blocks on the
	// run itself.
	TriggerDataProcessing(ctx context.Context) TriggerResult

	// GetNewDataReport returns the per-category new rows from the most recent
	// detection pass.
	GetNewDataReport() map[string]CategoryReport

	// UpdateNewData patches one in-memory new row; the underlying file is
	// never touched.
	UpdateNewData(category string, rowIndex int, patch map[string]string) error

	// GetHistory returns the most recent run ledger entries, limit clamped
	// to 1-100.
	GetHistory(ctx context.Context, limit int) ([]*models.RunHistoryEntry, error)

	// CompareData runs the content-aware comparison against the database
	// snapshot and replaces the snapshot.
	CompareData(ctx context.Context) (*CompareReport, error)
}
