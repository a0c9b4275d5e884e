package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/interfaces"
	"github.com/ternarybob/fueltrack/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RunHistoryStorage implements the RunHistoryStorage interface for Badger.
// The ledger is append-only: entries are upserted in place during a run and
// never deleted.
type RunHistoryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunHistoryStorage creates a new RunHistoryStorage instance
func NewRunHistoryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunHistoryStorage {
	return &RunHistoryStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RunHistoryStorage) SaveEntry(ctx context.Context, entry *models.RunHistoryEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("run history entry ID is required")
	}

	if err := s.db.Store().Upsert(entry.ID, entry); err != nil {
		return fmt.Errorf("failed to save run history entry: %w", err)
	}
	return nil
}

func (s *RunHistoryStorage) GetEntry(ctx context.Context, id string) (*models.RunHistoryEntry, error) {
	var entry models.RunHistoryEntry
	if err := s.db.Store().Get(id, &entry); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("run history entry not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get run history entry: %w", err)
	}
	return &entry, nil
}

func (s *RunHistoryStorage) ListEntries(ctx context.Context, limit int) ([]*models.RunHistoryEntry, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("StartTime").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.RunHistoryEntry
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to list run history entries: %w", err)
	}

	result := make([]*models.RunHistoryEntry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	return result, nil
}
