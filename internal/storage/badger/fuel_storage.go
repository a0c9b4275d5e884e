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

// FuelStorage implements the FuelStorage interface for Badger
type FuelStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewFuelStorage creates a new FuelStorage instance
func NewFuelStorage(db *BadgerDB, logger arbor.ILogger) interfaces.FuelStorage {
	return &FuelStorage{
		db:     db,
		logger: logger,
	}
}

func (s *FuelStorage) Save(ctx context.Context, record *models.FuelRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
		record.CreatedAt = time.Now()
	}
	record.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save fuel record: %w", err)
	}
	return nil
}

// UpsertByKey saves a record, reusing the ID of an existing record with the
// same business key (flight ID + date).
func (s *FuelStorage) UpsertByKey(ctx context.Context, record *models.FuelRecord) error {
	var existing []models.FuelRecord
	query := badgerhold.Where("FlightID").Eq(record.FlightID).And("Date").Eq(record.Date).Limit(1)
	if err := s.db.Store().Find(&existing, query); err != nil {
		return fmt.Errorf("failed to query fuel record by key: %w", err)
	}

	if len(existing) > 0 {
		record.ID = existing[0].ID
		record.CreatedAt = existing[0].CreatedAt
	}
	return s.Save(ctx, record)
}

func (s *FuelStorage) Get(ctx context.Context, id string) (*models.FuelRecord, error) {
	var record models.FuelRecord
	if err := s.db.Store().Get(id, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("fuel record not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get fuel record: %w", err)
	}
	return &record, nil
}

func (s *FuelStorage) List(ctx context.Context, limit, offset int) ([]*models.FuelRecord, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("Date").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var records []models.FuelRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list fuel records: %w", err)
	}

	result := make([]*models.FuelRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

func (s *FuelStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.FuelRecord{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("fuel record not found: %s", id)
		}
		return fmt.Errorf("failed to delete fuel record: %w", err)
	}
	return nil
}
