package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/interfaces"
	"github.com/ternarybob/fueltrack/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// UserStorage implements the UserStorage interface for Badger
type UserStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewUserStorage creates a new UserStorage instance
func NewUserStorage(db *BadgerDB, logger arbor.ILogger) interfaces.UserStorage {
	return &UserStorage{
		db:     db,
		logger: logger,
	}
}

func (s *UserStorage) SaveUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return fmt.Errorf("user ID is required")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(user.ID, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *UserStorage) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.Store().Get(userID, &user); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("user not found: %s", userID)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *UserStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []models.User
	if err := s.db.Store().Find(&users, badgerhold.Where("ID").Ne("").SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	result := make([]*models.User, len(users))
	for i := range users {
		result[i] = &users[i]
	}
	return result, nil
}

func (s *UserStorage) ListUsersByRoles(ctx context.Context, roles []string) ([]*models.User, error) {
	if len(roles) == 0 {
		return nil, nil
	}

	roleSet := make([]interface{}, len(roles))
	for i, r := range roles {
		roleSet[i] = r
	}

	var users []models.User
	if err := s.db.Store().Find(&users, badgerhold.Where("Role").In(roleSet...).SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to list users by roles: %w", err)
	}

	result := make([]*models.User, len(users))
	for i := range users {
		result[i] = &users[i]
	}
	return result, nil
}

func (s *UserStorage) SaveSettings(ctx context.Context, settings *models.UserSettings) error {
	if settings.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	settings.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(settings.UserID, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (s *UserStorage) GetSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	var settings models.UserSettings
	if err := s.db.Store().Get(userID, &settings); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("settings not found for user: %s", userID)
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &settings, nil
}
