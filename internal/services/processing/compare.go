package processing

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/ternarybob/fueltrack/internal/interfaces"
	"github.com/ternarybob/fueltrack/internal/models"
)

// comparer implements the content-aware comparison strategy. Unlike the
// count-based detector it keys records on business identifiers and deep-
// compares field values against an in-memory snapshot of the previous
// database state. The two strategies define "new record" differently and are
// deliberately kept separate.
type comparer struct {
	flightStorage interfaces.FlightStorage
	fuelStorage   interfaces.FuelStorage

	mu             sync.Mutex
	flightSnapshot map[string]models.FlightRecord
	fuelSnapshot   map[string]models.FuelRecord
	snapshotPrimed bool
}

func newComparer(flightStorage interfaces.FlightStorage, fuelStorage interfaces.FuelStorage) *comparer {
	return &comparer{
		flightStorage:  flightStorage,
		fuelStorage:    fuelStorage,
		flightSnapshot: map[string]models.FlightRecord{},
		fuelSnapshot:   map[string]models.FuelRecord{},
	}
}

// compare loads current database state, flags records whose key is absent
// from the prior snapshot or whose fields differ from it, and replaces the
// snapshot. The first call primes the snapshot and reports nothing.
func (c *comparer) compare(ctx context.Context) (*interfaces.CompareReport, error) {
	flights, err := c.flightStorage.List(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load flight records for comparison: %w", err)
	}
	fuel, err := c.fuelStorage.List(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load fuel records for comparison: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	report := &interfaces.CompareReport{
		Flights: []interfaces.CompareEntry{},
		Fuel:    []interfaces.CompareEntry{},
	}

	nextFlights := make(map[string]models.FlightRecord, len(flights))
	for _, record := range flights {
		key := record.Key()
		nextFlights[key] = *record
		if !c.snapshotPrimed {
			continue
		}
		prior, exists := c.flightSnapshot[key]
		if !exists {
			report.Flights = append(report.Flights, interfaces.CompareEntry{Key: key, Record: record})
		} else if !flightEqual(prior, *record) {
			report.Flights = append(report.Flights, interfaces.CompareEntry{Key: key, Changed: true, Record: record})
		}
	}

	nextFuel := make(map[string]models.FuelRecord, len(fuel))
	for _, record := range fuel {
		key := record.Key()
		nextFuel[key] = *record
		if !c.snapshotPrimed {
			continue
		}
		prior, exists := c.fuelSnapshot[key]
		if !exists {
			report.Fuel = append(report.Fuel, interfaces.CompareEntry{Key: key, Record: record})
		} else if !fuelEqual(prior, *record) {
			report.Fuel = append(report.Fuel, interfaces.CompareEntry{Key: key, Changed: true, Record: record})
		}
	}

	c.flightSnapshot = nextFlights
	c.fuelSnapshot = nextFuel
	c.snapshotPrimed = true

	return report, nil
}

// flightEqual deep-compares business fields, ignoring storage bookkeeping.
func flightEqual(a, b models.FlightRecord) bool {
	a.ID, b.ID = "", ""
	a.CreatedAt = b.CreatedAt
	a.UpdatedAt = b.UpdatedAt
	return reflect.DeepEqual(a, b)
}

// fuelEqual deep-compares business fields, ignoring storage bookkeeping.
func fuelEqual(a, b models.FuelRecord) bool {
	a.ID, b.ID = "", ""
	a.CreatedAt = b.CreatedAt
	a.UpdatedAt = b.UpdatedAt
	return reflect.DeepEqual(a, b)
}
