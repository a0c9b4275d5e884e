package processing

import (
	"context"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/interfaces"
	"github.com/ternarybob/fueltrack/internal/models"
)

// importer loads the extracted spreadsheets into the database after a
// successful run. Rows are upserted by business key so re-runs do not
// duplicate records. Row-level failures are logged and skipped; they never
// fail the run.
type importer struct {
	flightStorage interfaces.FlightStorage
	fuelStorage   interfaces.FuelStorage
	logger        arbor.ILogger
}

func newImporter(flightStorage interfaces.FlightStorage, fuelStorage interfaces.FuelStorage, logger arbor.ILogger) *importer {
	return &importer{
		flightStorage: flightStorage,
		fuelStorage:   fuelStorage,
		logger:        logger,
	}
}

// importFlights decodes the flight spreadsheet into typed records and upserts
// them. Returns the number of rows imported and the number rejected.
func (i *importer) importFlights(ctx context.Context, path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open flight data: %w", err)
	}
	defer f.Close()

	var records []*models.FlightRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return 0, 0, fmt.Errorf("failed to decode flight data: %w", err)
	}

	imported, rejected := 0, 0
	for _, record := range records {
		if record.FlightNo == "" || record.Date == "" {
			i.logger.Warn().Msg("Rejecting flight row without flight_no or date")
			rejected++
			continue
		}
		if err := i.flightStorage.UpsertByKey(ctx, record); err != nil {
			i.logger.Warn().Err(err).Str("key", record.Key()).Msg("Failed to import flight row")
			rejected++
			continue
		}
		imported++
	}
	return imported, rejected, nil
}

// importFuel decodes the fuel spreadsheet into typed records and upserts them.
func (i *importer) importFuel(ctx context.Context, path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open fuel data: %w", err)
	}
	defer f.Close()

	var records []*models.FuelRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return 0, 0, fmt.Errorf("failed to decode fuel data: %w", err)
	}

	imported, rejected := 0, 0
	for _, record := range records {
		if record.FlightID == "" || record.Date == "" {
			i.logger.Warn().Msg("Rejecting fuel row without flight_id or date")
			rejected++
			continue
		}
		if err := i.fuelStorage.UpsertByKey(ctx, record); err != nil {
			i.logger.Warn().Err(err).Str("key", record.Key()).Msg("Failed to import fuel row")
			rejected++
			continue
		}
		imported++
	}
	return imported, rejected, nil
}
