package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/interfaces"
	"github.com/ternarybob/fueltrack/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// FlightStorage implements the FlightStorage interface for Badger
type FlightStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewFlightStorage creates a new FlightStorage instance
func NewFlightStorage(db *BadgerDB, logger arbor.ILogger) interfaces.FlightStorage {
	return &FlightStorage{
		db:     db,
		logger: logger,
	}
}

func (s *FlightStorage) Save(ctx context.Context, record *models.FlightRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
		record.CreatedAt = time.Now()
	}
	record.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save flight record: %w", err)
	}
	return nil
}

// UpsertByKey saves a record, reusing the ID of an existing record with the
// same business key (flight number + date). Used by spreadsheet import so
// re-runs do not duplicate rows.
func (s *FlightStorage) UpsertByKey(ctx context.Context, record *models.FlightRecord) error {
	var existing []models.FlightRecord
	query := badgerhold.Where("FlightNo").Eq(record.FlightNo).And("Date").Eq(record.Date).Limit(1)
	if err := s.db.Store().Find(&existing, query); err != nil {
		return fmt.Errorf("failed to query flight record by key: %w", err)
	}

	if len(existing) > 0 {
		record.ID = existing[0].ID
		record.CreatedAt = existing[0].CreatedAt
	}
	return s.Save(ctx, record)
}

func (s *FlightStorage) Get(ctx context.Context, id string) (*models.FlightRecord, error) {
	var record models.FlightRecord
	if err := s.db.Store().Get(id, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("flight record not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get flight record: %w", err)
	}
	return &record, nil
}

func (s *FlightStorage) List(ctx context.Context, limit, offset int) ([]*models.FlightRecord, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("Date").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var records []models.FlightRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list flight records: %w", err)
	}

	result := make([]*models.FlightRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

func (s *FlightStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.FlightRecord{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("flight record not found: %s", id)
		}
		return fmt.Errorf("failed to delete flight record: %w", err)
	}
	return nil
}
