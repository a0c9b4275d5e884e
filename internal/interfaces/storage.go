package interfaces

import (
	"context"

	"github.com/ternarybob/fueltrack/internal/models"
)

// UserStorage persists users and their settings. Settings reads fall back to
// defaults at the service layer, not here; a missing settings record returns
// ErrNotFound from the implementation wrapped in a descriptive error.
type UserStorage interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListUsersByRoles(ctx context.Context, roles []string) ([]*models.User, error)

	SaveSettings(ctx context.Context, settings *models.UserSettings) error
	GetSettings(ctx context.Context, userID string) (*models.UserSettings, error)
}

// FlightStorage persists flight records keyed by ID, with business-key upsert
// used by spreadsheet import.
type FlightStorage interface {
	Save(ctx context.Context, record *models.FlightRecord) error
	UpsertByKey(ctx context.Context, record *models.FlightRecord) error
	Get(ctx context.Context, id string) (*models.FlightRecord, error)
	List(ctx context.Context, limit, offset int) ([]*models.FlightRecord, error)
	Delete(ctx context.Context, id string) error
}

// FuelStorage persists fuel records keyed by ID, with business-key upsert
// used by spreadsheet import.
type FuelStorage interface {
	Save(ctx context.Context, record *models.FuelRecord) error
	UpsertByKey(ctx context.Context, record *models.FuelRecord) error
	Get(ctx context.Context, id string) (*models.FuelRecord, error)
	List(ctx context.Context, limit, offset int) ([]*models.FuelRecord, error)
	Delete(ctx context.Context, id string) error
}

// RunHistoryStorage is the append-only run ledger. Entries are upserted in
// place as the run progresses and never deleted.
type RunHistoryStorage interface {
	SaveEntry(ctx context.Context, entry *models.RunHistoryEntry) error
	GetEntry(ctx context.Context, id string) (*models.RunHistoryEntry, error)
	ListEntries(ctx context.Context, limit int) ([]*models.RunHistoryEntry, error)
}

// NotificationStorage persists notifications. Read-state mutation lives here
// for the HTTP surface; the fan-out only creates.
type NotificationStorage interface {
	SaveNotification(ctx context.Context, notification *models.Notification) error
	ListForUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// StorageManager aggregates all storage interfaces behind one lifecycle.
type StorageManager interface {
	UserStorage() UserStorage
	FlightStorage() FlightStorage
	FuelStorage() FuelStorage
	RunHistoryStorage() RunHistoryStorage
	NotificationStorage() NotificationStorage
	Close() error
}
