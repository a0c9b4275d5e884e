package models

import "testing"

func TestRunHistoryEntrySnapshotIsIndependent(t *testing.T) {
	entry := NewRunHistoryEntry()
	entry.Details.ScriptsExecuted = append(entry.Details.ScriptsExecuted, "extract_fuel_data.py")
	entry.Details.NewRecords["fuel_data"] = 2

	snap := entry.Snapshot()
	if snap == entry {
		t.Fatal("snapshot returned the live entry")
	}

	entry.Details.ScriptsExecuted = append(entry.Details.ScriptsExecuted, "merge_data.py")
	entry.Details.NewRecords["flight_data"] = 5
	entry.Complete()

	if len(snap.Details.ScriptsExecuted) != 1 || snap.Details.ScriptsExecuted[0] != "extract_fuel_data.py" {
		t.Errorf("snapshot scripts mutated: %v", snap.Details.ScriptsExecuted)
	}
	if _, ok := snap.Details.NewRecords["flight_data"]; ok {
		t.Error("snapshot new-records map shares storage with the live entry")
	}
	if snap.Status != RunStatusStarted {
		t.Errorf("snapshot status = %s, want started", snap.Status)
	}
	if snap.EndTime != nil {
		t.Error("snapshot gained an end time from the live entry")
	}
}
