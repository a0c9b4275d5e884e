package processing

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/common"
	"github.com/ternarybob/fueltrack/internal/interfaces"
	"github.com/ternarybob/fueltrack/internal/models"
)

// Service coordinates the external extraction pipeline: it runs the fixed,
// ordered script sequence exactly once at a time, records progress in the run
// ledger, diffs record counts against the in-memory baseline, and fans out
// notifications.
//
// The single-flight guard is an in-memory flag, not a distributed lock; it is
// safe only for single-process deployment. A trigger that fires while a run
// is active is dropped, not queued.
type Service struct {
	pipeline      *common.PipelineConfig
	runner        *scriptRunner
	detector      *detector
	importer      *importer
	comparer      *comparer
	history       interfaces.RunHistoryStorage
	notifications interfaces.NotificationService
	eventService  interfaces.EventService
	logger        arbor.ILogger

	mu       sync.Mutex
	running  bool
	baseline Baseline
}

// NewService creates a new processing pipeline coordinator
func NewService(
	pipeline *common.PipelineConfig,
	flightStorage interfaces.FlightStorage,
	fuelStorage interfaces.FuelStorage,
	history interfaces.RunHistoryStorage,
	notifications interfaces.NotificationService,
	eventService interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		pipeline:      pipeline,
		runner:        newScriptRunner(pipeline, logger),
		detector:      newDetector(pipeline.SpreadsheetPaths(), logger),
		importer:      newImporter(flightStorage, fuelStorage, logger),
		comparer:      newComparer(flightStorage, fuelStorage),
		history:       history,
		notifications: notifications,
		eventService:  eventService,
		logger:        logger,
		baseline:      NewBaseline(),
	}
}

// Initialize validates the interpreter, the script files, and every
// spreadsheet path, then establishes the initial record baseline. Any failure
// propagates: the system must not serve schedules against missing
// infrastructure.
func (s *Service) Initialize(ctx context.Context) error {
	if err := s.runner.validate(); err != nil {
		return err
	}

	paths := []string{s.pipeline.FuelDataPath, s.pipeline.FlightDataPath, s.pipeline.MergedDataPath}
	for _, path := range paths {
		if err := checkReadable(path); err != nil {
			return err
		}
	}

	baseline, err := s.detector.seed()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.baseline = baseline
	s.mu.Unlock()

	s.logger.Info().
		Int("scripts", len(s.pipeline.Scripts)).
		Msg("Processing pipeline initialized")

	return nil
}

// tryClaim takes the single-flight flag. Returns false when a run already
// holds it.
func (s *Service) tryClaim() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

// RunDataProcessing executes the full pipeline once. If a run is already in
// progress it returns immediately without starting a second one.
func (s *Service) RunDataProcessing(ctx context.Context) {
	if !s.tryClaim() {
		s.logger.Info().Msg("Data processing already in progress, skipping trigger")
		return
	}
	s.run(ctx)
}

// run performs one pipeline pass. The caller must hold the single-flight
// claim; the flag clears in a final step regardless of outcome.
func (s *Service) run(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	entry := models.NewRunHistoryEntry()
	if err := s.history.SaveEntry(ctx, entry); err != nil {
		s.logger.Error().Err(err).Msg("Failed to create run history entry, aborting run")
		return
	}

	s.logger.Info().Str("run_id", entry.ID).Msg("Data processing run started")
	// Event handlers run on their own goroutines while this run keeps
	// mutating the entry, so the bus only ever sees snapshots.
	_ = s.eventService.Publish(ctx, interfaces.Event{Type: interfaces.EventRunStarted, Payload: entry.Snapshot()})

	if err := s.executeRun(ctx, entry); err != nil {
		s.failRun(ctx, entry, err)
		return
	}

	entry.Complete()
	if err := s.history.SaveEntry(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("run_id", entry.ID).Msg("Failed to finalize run history entry")
	}

	s.logger.Info().
		Str("run_id", entry.ID).
		Int("notifications_sent", entry.Details.NotificationsSent).
		Msg("Data processing run completed")
	_ = s.eventService.Publish(ctx, interfaces.Event{Type: interfaces.EventRunCompleted, Payload: entry.Snapshot()})
}

// executeRun performs the script sequence and post-processing steps for one
// run, mutating the ledger entry as it goes.
func (s *Service) executeRun(ctx context.Context, entry *models.RunHistoryEntry) error {
	// Scripts execute strictly sequentially; a failure aborts the remainder.
	for _, script := range s.pipeline.Scripts {
		if err := s.runner.run(ctx, script); err != nil {
			return err
		}

		// Persist after every step so partial progress survives a crash.
		entry.Details.ScriptsExecuted = append(entry.Details.ScriptsExecuted, script)
		if err := s.history.SaveEntry(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Str("run_id", entry.ID).Msg("Failed to persist run progress")
		}
		_ = s.eventService.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventRunScriptCompleted,
			Payload: map[string]interface{}{"run_id": entry.ID, "script": script},
		})
	}

	// A successful exit code from every script is not sufficient evidence of
	// a successful run: an empty merged output is a failure, not zero rows.
	mergedCount, err := countRows(s.pipeline.MergedDataPath)
	if err != nil {
		return fmt.Errorf("failed to verify merged output: %w", err)
	}
	if mergedCount == 0 {
		return fmt.Errorf("pipeline produced an empty merged data file")
	}

	if err := s.detectAndNotify(ctx, entry); err != nil {
		return err
	}

	if err := s.notifyMissingData(ctx, entry); err != nil {
		return err
	}

	s.importSpreadsheets(ctx, entry)

	return nil
}

// detectAndNotify runs the count-based change detection pass and fans out a
// count-bearing notification per category with growth.
func (s *Service) detectAndNotify(ctx context.Context, entry *models.RunHistoryEntry) error {
	s.mu.Lock()
	baseline := s.baseline
	s.mu.Unlock()

	next, deltas, err := s.detector.check(baseline)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.baseline = next
	s.mu.Unlock()

	for category, delta := range deltas {
		entry.Details.NewRecords[category] = delta.NewRecords
		if delta.NewRecords == 0 {
			continue
		}

		message := fmt.Sprintf("%d new %s records are available", delta.NewRecords, category)
		sent := s.notifications.NotifyAll(ctx, models.NotificationUpdate, message, map[string]interface{}{
			"category":    category,
			"new_records": delta.NewRecords,
		})
		entry.Details.NotificationsSent += sent
	}

	return s.history.SaveEntry(ctx, entry)
}

// notifyMissingData runs the missing-data reporting script and fans out a
// warning per category with gaps.
func (s *Service) notifyMissingData(ctx context.Context, entry *models.RunHistoryEntry) error {
	report, err := s.runner.runMissingDataCheck(ctx)
	if err != nil {
		return err
	}
	if report == nil || report.Success {
		return nil
	}

	for category, columns := range report.Details {
		total := 0
		for _, gap := range columns {
			total += gap.Count
		}
		message := fmt.Sprintf("%s has %d missing values across %d columns", category, total, len(columns))
		sent := s.notifications.NotifyAll(ctx, models.NotificationDataMissing, message, map[string]interface{}{
			"category": category,
			"columns":  len(columns),
			"missing":  total,
		})
		entry.Details.NotificationsSent += sent
	}

	return s.history.SaveEntry(ctx, entry)
}

// importSpreadsheets loads the extracted rows into the database. Import
// problems are logged, never fatal to the run; rejected rows are reported to
// admin users.
func (s *Service) importSpreadsheets(ctx context.Context, entry *models.RunHistoryEntry) {
	flights, flightsRejected, err := s.importer.importFlights(ctx, s.pipeline.FlightDataPath)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Flight data import failed")
	}
	fuel, fuelRejected, err := s.importer.importFuel(ctx, s.pipeline.FuelDataPath)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Fuel data import failed")
	}

	rejected := flightsRejected + fuelRejected
	if rejected > 0 {
		sent := s.notifications.NotifyAdmins(ctx, models.NotificationImportRejected,
			fmt.Sprintf("%d spreadsheet rows were rejected during import", rejected),
			map[string]interface{}{
				"run_id":           entry.ID,
				"flights_rejected": flightsRejected,
				"fuel_rejected":    fuelRejected,
			},
		)
		entry.Details.NotificationsSent += sent
	}

	s.logger.Info().
		Int("flights", flights).
		Int("fuel", fuel).
		Int("rejected", rejected).
		Msg("Spreadsheet import complete")
}

// failRun finalizes the ledger entry as failed and notifies admin users.
// Errors inside a run never propagate; the scheduler must keep running.
func (s *Service) failRun(ctx context.Context, entry *models.RunHistoryEntry, runErr error) {
	s.logger.Error().Err(runErr).Str("run_id", entry.ID).Msg("Data processing run failed")

	entry.Fail(runErr.Error())
	if err := s.history.SaveEntry(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("run_id", entry.ID).Msg("Failed to persist failed run entry")
	}

	sent := s.notifications.NotifyAdmins(ctx, models.NotificationProcessingError,
		fmt.Sprintf("Data processing failed: %s", runErr.Error()),
		map[string]interface{}{"run_id": entry.ID},
	)
	entry.Details.NotificationsSent += sent
	_ = s.history.SaveEntry(ctx, entry)

	_ = s.eventService.Publish(ctx, interfaces.Event{Type: interfaces.EventRunFailed, Payload: entry.Snapshot()})
}

// TriggerDataProcessing is the manual entry point. It surfaces a structured
// result rather than an error; the run itself proceeds in the background.
// The claim is taken before returning, so a caller that sees started=true
// knows its run, and not a concurrent trigger's, holds the flag.
func (s *Service) TriggerDataProcessing(ctx context.Context) interfaces.TriggerResult {
	if !s.tryClaim() {
		return interfaces.TriggerResult{
			AlreadyRunning: true,
			Message:        "data processing is already in progress",
		}
	}

	common.SafeGo(s.logger, "manual-data-processing", func() {
		s.run(context.Background())
	})

	return interfaces.TriggerResult{
		Started: true,
		Message: "data processing started",
	}
}

// GetNewDataReport returns the per-category new rows from the most recent
// detection pass.
func (s *Service) GetNewDataReport() map[string]interfaces.CategoryReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := make(map[string]interfaces.CategoryReport, len(s.pipeline.SpreadsheetPaths()))
	for category := range s.pipeline.SpreadsheetPaths() {
		rows := s.baseline.NewRows[category]
		if rows == nil {
			rows = []map[string]string{}
		}
		report[category] = interfaces.CategoryReport{
			NewRecords: len(rows),
			NewData:    rows,
		}
	}
	return report
}

// UpdateNewData patches one in-memory new row. The underlying spreadsheet is
// never modified.
func (s *Service) UpdateNewData(category string, rowIndex int, patch map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.baseline.NewRows[category]
	if !ok {
		return fmt.Errorf("unknown data category: %s", category)
	}
	if rowIndex < 0 || rowIndex >= len(rows) {
		return fmt.Errorf("row index %d out of range for %s (%d new rows)", rowIndex, category, len(rows))
	}

	for field, value := range patch {
		rows[rowIndex][field] = value
	}
	return nil
}

// GetHistory returns the most recent ledger entries, newest first. Limit is
// clamped to 1-100.
func (s *Service) GetHistory(ctx context.Context, limit int) ([]*models.RunHistoryEntry, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}
	return s.history.ListEntries(ctx, limit)
}

// CompareData runs the content-aware comparison strategy against the database
// snapshot.
func (s *Service) CompareData(ctx context.Context) (*interfaces.CompareReport, error) {
	return s.comparer.compare(ctx)
}
