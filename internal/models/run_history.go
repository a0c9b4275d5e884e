package models

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a processing run.
type RunStatus string

const (
	RunStatusStarted   RunStatus = "started"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunDetails accumulates per-run progress. ScriptsExecuted is ordered:
// a script name is appended only after its subprocess exits successfully,
// so a crash mid-run leaves an accurate partial record.
type RunDetails struct {
	ScriptsExecuted   []string       `json:"scripts_executed"`
	NotificationsSent int            `json:"notifications_sent"`
	NewRecords        map[string]int `json:"new_records"`
}

// RunHistoryEntry is one entry of the append-only run ledger. Entries are
// created with status=started and finalized in place; they are never deleted
// by this subsystem.
type RunHistoryEntry struct {
	ID        string     `json:"id" badgerhold:"key"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Status    RunStatus  `json:"status"`
	Error     string     `json:"error,omitempty"`
	Details   RunDetails `json:"details"`
}

// NewRunHistoryEntry creates a started entry for a run beginning now.
func NewRunHistoryEntry() *RunHistoryEntry {
	return &RunHistoryEntry{
		ID:        uuid.New().String(),
		StartTime: time.Now(),
		Status:    RunStatusStarted,
		Details: RunDetails{
			ScriptsExecuted: []string{},
			NewRecords:      map[string]int{},
		},
	}
}

// Snapshot returns a deep copy of the entry. The run keeps mutating the live
// entry while asynchronous consumers read the published payload, so anything
// handed to the event bus must be a copy.
func (e *RunHistoryEntry) Snapshot() *RunHistoryEntry {
	clone := *e
	clone.Details.ScriptsExecuted = append([]string{}, e.Details.ScriptsExecuted...)
	clone.Details.NewRecords = make(map[string]int, len(e.Details.NewRecords))
	for category, count := range e.Details.NewRecords {
		clone.Details.NewRecords[category] = count
	}
	if e.EndTime != nil {
		end := *e.EndTime
		clone.EndTime = &end
	}
	return &clone
}

// Complete finalizes the entry as successful.
func (e *RunHistoryEntry) Complete() {
	now := time.Now()
	e.EndTime = &now
	e.Status = RunStatusCompleted
}

// Fail finalizes the entry with the causing error message.
func (e *RunHistoryEntry) Fail(msg string) {
	now := time.Now()
	e.EndTime = &now
	e.Status = RunStatusFailed
	e.Error = msg
}
