package processing

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/fueltrack/internal/common"
	"github.com/ternarybob/fueltrack/internal/interfaces"
	"github.com/ternarybob/fueltrack/internal/models"
	"github.com/ternarybob/fueltrack/internal/services/events"
)

type memHistory struct {
	mu      sync.Mutex
	entries map[string]*models.RunHistoryEntry
	// lastLimit records the limit passed to ListEntries for clamp checks.
	lastLimit int
}

func newMemHistory() *memHistory {
	return &memHistory{entries: map[string]*models.RunHistoryEntry{}}
}

func (m *memHistory) SaveEntry(ctx context.Context, entry *models.RunHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *entry
	m.entries[entry.ID] = &clone
	return nil
}

func (m *memHistory) GetEntry(ctx context.Context, id string) (*models.RunHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return nil, assert.AnError
}

func (m *memHistory) ListEntries(ctx context.Context, limit int) ([]*models.RunHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit

	all := make([]*models.RunHistoryEntry, 0, len(m.entries))
	for _, e := range m.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.After(all[j].StartTime) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type notifyCall struct {
	notificationType models.NotificationType
	message          string
}

type fakeNotifications struct {
	mu         sync.Mutex
	allCalls   []notifyCall
	adminCalls []notifyCall
	perCreate  int // notifications reported created per fan-out call
}

func (f *fakeNotifications) CreateNotification(ctx context.Context, userID string, notificationType models.NotificationType, message string, metadata map[string]interface{}) (*models.Notification, error) {
	return models.NewNotification(userID, notificationType, message, metadata), nil
}

func (f *fakeNotifications) NotifyAll(ctx context.Context, notificationType models.NotificationType, message string, metadata map[string]interface{}) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allCalls = append(f.allCalls, notifyCall{notificationType, message})
	return f.perCreate
}

func (f *fakeNotifications) NotifyAdmins(ctx context.Context, notificationType models.NotificationType, message string, metadata map[string]interface{}) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adminCalls = append(f.adminCalls, notifyCall{notificationType, message})
	return f.perCreate
}

type stubEvents struct{}

func (s *stubEvents) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	return nil
}
func (s *stubEvents) Publish(ctx context.Context, event interfaces.Event) error     { return nil }
func (s *stubEvents) PublishSync(ctx context.Context, event interfaces.Event) error { return nil }
func (s *stubEvents) Close() error                                                  { return nil }

type pipelineFixture struct {
	service       *Service
	pipeline      *common.PipelineConfig
	history       *memHistory
	notifications *fakeNotifications
	flights       *fakeFlightStorage
	fuel          *fakeFuelStorage
	scriptsDir    string
}

// newPipelineFixture builds a runnable pipeline using shell scripts in place
// of the real extraction scripts.
func newPipelineFixture(t *testing.T, scripts map[string]string) *pipelineFixture {
	t.Helper()
	return newPipelineFixtureWith(t, scripts, &stubEvents{})
}

func newPipelineFixtureWith(t *testing.T, scripts map[string]string, eventService interfaces.EventService) *pipelineFixture {
	t.Helper()
	dir := t.TempDir()
	scriptsDir := filepath.Join(dir, "scripts")
	require.NoError(t, os.Mkdir(scriptsDir, 0755))

	names := []string{"step_one.sh", "step_two.sh"}
	defaults := map[string]string{
		"step_one.sh": "exit 0\n",
		"step_two.sh": "exit 0\n",
		"missing.sh":  "echo '{\"success\": true}'\n",
	}
	for name, body := range scripts {
		defaults[name] = body
	}
	for name, body := range defaults {
		require.NoError(t, os.WriteFile(filepath.Join(scriptsDir, name), []byte(body), 0755))
	}

	fuelPath := filepath.Join(dir, "fuel_data.csv")
	flightPath := filepath.Join(dir, "flight_data.csv")
	mergedPath := filepath.Join(dir, "merged_data.csv")
	writeFile(t, fuelPath, fuelHeader+"QF1,2025-06-01,SYD,45000,42000,0.79,Shell\n")
	writeFile(t, flightPath, flightHeader+"QF1,2025-06-01,SYD,LAX,B789,280,13:45\n")
	writeFile(t, mergedPath, "flight_no,date,uplift_kg\nQF1,2025-06-01,45000\n")

	pipeline := &common.PipelineConfig{
		Interpreter:       "/bin/sh",
		ScriptsDir:        scriptsDir,
		Scripts:           names,
		MissingDataScript: "missing.sh",
		FuelDataPath:      fuelPath,
		FlightDataPath:    flightPath,
		MergedDataPath:    mergedPath,
	}

	history := newMemHistory()
	notifications := &fakeNotifications{perCreate: 2}
	flights := &fakeFlightStorage{}
	fuel := &fakeFuelStorage{}

	svc := NewService(pipeline, flights, fuel, history, notifications, eventService, common.GetLogger())
	require.NoError(t, svc.Initialize(context.Background()))

	return &pipelineFixture{
		service:       svc,
		pipeline:      pipeline,
		history:       history,
		notifications: notifications,
		flights:       flights,
		fuel:          fuel,
		scriptsDir:    scriptsDir,
	}
}

func (f *pipelineFixture) singleEntry(t *testing.T) *models.RunHistoryEntry {
	t.Helper()
	entries, err := f.history.ListEntries(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return entries[0]
}

func TestRunDataProcessingSuccess(t *testing.T) {
	f := newPipelineFixture(t, nil)

	f.service.RunDataProcessing(context.Background())

	entry := f.singleEntry(t)
	assert.Equal(t, models.RunStatusCompleted, entry.Status)
	assert.Equal(t, []string{"step_one.sh", "step_two.sh"}, entry.Details.ScriptsExecuted)
	assert.NotNil(t, entry.EndTime)
	assert.Empty(t, entry.Error)

	// No file growth since Initialize, so no update notifications.
	assert.Empty(t, f.notifications.allCalls)

	// Spreadsheets imported into storage.
	assert.Equal(t, 1, f.flights.upserts)
	assert.Equal(t, 1, f.fuel.upserts)
}

func TestRunDataProcessingScriptFailureAbortsSequence(t *testing.T) {
	f := newPipelineFixture(t, map[string]string{
		"step_two.sh": "echo 'boom' >&2\nexit 3\n",
	})

	f.service.RunDataProcessing(context.Background())

	entry := f.singleEntry(t)
	assert.Equal(t, models.RunStatusFailed, entry.Status)
	assert.Equal(t, []string{"step_one.sh"}, entry.Details.ScriptsExecuted)
	assert.Contains(t, entry.Error, "step_two.sh")

	require.Len(t, f.notifications.adminCalls, 1)
	assert.Equal(t, models.NotificationProcessingError, f.notifications.adminCalls[0].notificationType)
	assert.Empty(t, f.notifications.allCalls)
}

func TestRunDataProcessingTracebackOnStderrFails(t *testing.T) {
	f := newPipelineFixture(t, map[string]string{
		"step_one.sh": "echo 'Traceback (most recent call last):' >&2\nexit 0\n",
	})

	f.service.RunDataProcessing(context.Background())

	entry := f.singleEntry(t)
	assert.Equal(t, models.RunStatusFailed, entry.Status)
	assert.Empty(t, entry.Details.ScriptsExecuted)
}

func TestRunDataProcessingEmptyMergedOutputFails(t *testing.T) {
	f := newPipelineFixture(t, nil)
	writeFile(t, f.pipeline.MergedDataPath, "flight_no,date,uplift_kg\n")

	f.service.RunDataProcessing(context.Background())

	entry := f.singleEntry(t)
	assert.Equal(t, models.RunStatusFailed, entry.Status)
	assert.Contains(t, entry.Error, "empty merged data file")
}

func TestRunDataProcessingNotifiesOnGrowth(t *testing.T) {
	f := newPipelineFixture(t, nil)

	// A new fuel row lands between Initialize and the run.
	writeFile(t, f.pipeline.FuelDataPath, fuelHeader+
		"QF1,2025-06-01,SYD,45000,42000,0.79,Shell\n"+
		"QF2,2025-06-01,MEL,30000,28000,0.79,BP\n")

	f.service.RunDataProcessing(context.Background())

	entry := f.singleEntry(t)
	assert.Equal(t, models.RunStatusCompleted, entry.Status)
	assert.Equal(t, 1, entry.Details.NewRecords[models.CategoryFuelData])
	assert.Equal(t, 0, entry.Details.NewRecords[models.CategoryFlightData])
	assert.Equal(t, 2, entry.Details.NotificationsSent)

	require.Len(t, f.notifications.allCalls, 1)
	assert.Equal(t, models.NotificationUpdate, f.notifications.allCalls[0].notificationType)
	assert.Contains(t, f.notifications.allCalls[0].message, "1 new fuel_data records")

	report := f.service.GetNewDataReport()
	require.Equal(t, 1, report[models.CategoryFuelData].NewRecords)
	assert.Equal(t, "QF2", report[models.CategoryFuelData].NewData[0]["flight_id"])
}

func TestRunDataProcessingMissingDataFanOut(t *testing.T) {
	f := newPipelineFixture(t, map[string]string{
		"missing.sh": "echo '{\"success\": false, \"details\": {\"fuel_data\": {\"uplift_kg\": {\"count\": 2, \"rows\": [3, 4]}}}}'\n",
	})

	f.service.RunDataProcessing(context.Background())

	entry := f.singleEntry(t)
	assert.Equal(t, models.RunStatusCompleted, entry.Status)

	require.Len(t, f.notifications.allCalls, 1)
	assert.Equal(t, models.NotificationDataMissing, f.notifications.allCalls[0].notificationType)
	assert.Contains(t, f.notifications.allCalls[0].message, "fuel_data")
}

func TestTriggerDataProcessingSingleFlight(t *testing.T) {
	f := newPipelineFixture(t, map[string]string{
		"step_one.sh": "sleep 0.3\nexit 0\n",
	})

	done := make(chan struct{})
	go func() {
		f.service.RunDataProcessing(context.Background())
		close(done)
	}()

	// Wait until the run holds the flag.
	require.Eventually(t, func() bool {
		f.service.mu.Lock()
		defer f.service.mu.Unlock()
		return f.service.running
	}, time.Second, 5*time.Millisecond)

	result := f.service.TriggerDataProcessing(context.Background())
	assert.True(t, result.AlreadyRunning)
	assert.False(t, result.Started)

	<-done

	result = f.service.TriggerDataProcessing(context.Background())
	assert.True(t, result.Started)
	require.Eventually(t, func() bool {
		f.service.mu.Lock()
		defer f.service.mu.Unlock()
		return !f.service.running
	}, 5*time.Second, 10*time.Millisecond)
}

func TestTriggerDataProcessingClaimsBeforeReturn(t *testing.T) {
	f := newPipelineFixture(t, map[string]string{
		"step_one.sh": "sleep 0.2\nexit 0\n",
	})

	first := f.service.TriggerDataProcessing(context.Background())
	require.True(t, first.Started)

	// The claim is held from the moment the first call returned, so a
	// back-to-back trigger can never also report started.
	second := f.service.TriggerDataProcessing(context.Background())
	assert.True(t, second.AlreadyRunning)
	assert.False(t, second.Started)

	require.Eventually(t, func() bool {
		f.service.mu.Lock()
		defer f.service.mu.Unlock()
		return !f.service.running
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRunDataProcessingPublishesSnapshots(t *testing.T) {
	bus := events.NewService(common.GetLogger())

	var mu sync.Mutex
	var started *models.RunHistoryEntry
	handler := func(ctx context.Context, event interfaces.Event) error {
		entry, ok := event.Payload.(*models.RunHistoryEntry)
		if !ok {
			return nil
		}
		// Same read path as the websocket broadcaster.
		if _, err := json.Marshal(entry); err != nil {
			return err
		}
		mu.Lock()
		if entry.Status == models.RunStatusStarted {
			started = entry
		}
		mu.Unlock()
		return nil
	}
	require.NoError(t, bus.Subscribe(interfaces.EventRunStarted, handler))
	require.NoError(t, bus.Subscribe(interfaces.EventRunCompleted, handler))

	f := newPipelineFixtureWith(t, nil, bus)
	f.service.RunDataProcessing(context.Background())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return started != nil
	}, time.Second, 5*time.Millisecond)

	// The started payload was copied before any script ran; the live entry
	// has since accumulated every script. A shared pointer would show the
	// finished state here (and race with the run's own appends).
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, started.Details.ScriptsExecuted)
	assert.Equal(t, models.RunStatusStarted, started.Status)
}

func TestRunDataProcessingNotifiesRejectedImportRows(t *testing.T) {
	f := newPipelineFixture(t, nil)

	// Second fuel row has no flight_id and must be rejected by the import.
	writeFile(t, f.pipeline.FuelDataPath, fuelHeader+
		"QF1,2025-06-01,SYD,45000,42000,0.79,Shell\n"+
		",2025-06-01,MEL,30000,28000,0.79,BP\n")

	f.service.RunDataProcessing(context.Background())

	entry := f.singleEntry(t)
	assert.Equal(t, models.RunStatusCompleted, entry.Status)
	assert.Equal(t, 1, f.fuel.upserts)

	require.Len(t, f.notifications.adminCalls, 1)
	assert.Equal(t, models.NotificationImportRejected, f.notifications.adminCalls[0].notificationType)
	assert.Contains(t, f.notifications.adminCalls[0].message, "1 spreadsheet rows were rejected")
}

func TestGetHistoryClampsLimit(t *testing.T) {
	f := newPipelineFixture(t, nil)

	_, err := f.service.GetHistory(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, 100, f.history.lastLimit)

	_, err = f.service.GetHistory(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, f.history.lastLimit)

	_, err = f.service.GetHistory(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, 25, f.history.lastLimit)
}

func TestUpdateNewData(t *testing.T) {
	f := newPipelineFixture(t, nil)

	writeFile(t, f.pipeline.FuelDataPath, fuelHeader+
		"QF1,2025-06-01,SYD,45000,42000,0.79,Shell\n"+
		"QF2,2025-06-01,MEL,30000,28000,0.79,BP\n")
	f.service.RunDataProcessing(context.Background())

	err := f.service.UpdateNewData(models.CategoryFuelData, 0, map[string]string{"supplier": "Ampol"})
	require.NoError(t, err)

	report := f.service.GetNewDataReport()
	assert.Equal(t, "Ampol", report[models.CategoryFuelData].NewData[0]["supplier"])

	// Out of range and unknown category are rejected.
	assert.Error(t, f.service.UpdateNewData(models.CategoryFuelData, 5, map[string]string{"x": "y"}))
	assert.Error(t, f.service.UpdateNewData("bogus", 0, map[string]string{"x": "y"}))
}
