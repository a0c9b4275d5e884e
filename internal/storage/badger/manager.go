package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/common"
	"github.com/ternarybob/fueltrack/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db           *BadgerDB
	user         interfaces.UserStorage
	flight       interfaces.FlightStorage
	fuel         interfaces.FuelStorage
	runHistory   interfaces.RunHistoryStorage
	notification interfaces.NotificationStorage
	logger       arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:           db,
		user:         NewUserStorage(db, logger),
		flight:       NewFlightStorage(db, logger),
		fuel:         NewFuelStorage(db, logger),
		runHistory:   NewRunHistoryStorage(db, logger),
		notification: NewNotificationStorage(db, logger),
		logger:       logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// UserStorage returns the User storage interface
func (m *Manager) UserStorage() interfaces.UserStorage {
	return m.user
}

// FlightStorage returns the Flight storage interface
func (m *Manager) FlightStorage() interfaces.FlightStorage {
	return m.flight
}

// FuelStorage returns the Fuel storage interface
func (m *Manager) FuelStorage() interfaces.FuelStorage {
	return m.fuel
}

// RunHistoryStorage returns the RunHistory storage interface
func (m *Manager) RunHistoryStorage() interfaces.RunHistoryStorage {
	return m.runHistory
}

// NotificationStorage returns the Notification storage interface
func (m *Manager) NotificationStorage() interfaces.NotificationStorage {
	return m.notification
}

// Close closes the storage manager
func (m *Manager) Close() error {
	return m.db.Close()
}
