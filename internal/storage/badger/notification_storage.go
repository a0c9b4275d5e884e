package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/interfaces"
	"github.com/ternarybob/fueltrack/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// NotificationStorage implements the NotificationStorage interface for Badger
type NotificationStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewNotificationStorage creates a new NotificationStorage instance
func NewNotificationStorage(db *BadgerDB, logger arbor.ILogger) interfaces.NotificationStorage {
	return &NotificationStorage{
		db:     db,
		logger: logger,
	}
}

func (s *NotificationStorage) SaveNotification(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		return fmt.Errorf("notification ID is required")
	}
	if notification.UserID == "" {
		return fmt.Errorf("notification user ID is required")
	}

	if err := s.db.Store().Upsert(notification.ID, notification); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}

func (s *NotificationStorage) ListForUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	query := badgerhold.Where("UserID").Eq(userID).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var notifications []models.Notification
	if err := s.db.Store().Find(&notifications, query); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	result := make([]*models.Notification, len(notifications))
	for i := range notifications {
		result[i] = &notifications[i]
	}
	return result, nil
}

func (s *NotificationStorage) MarkRead(ctx context.Context, id string) error {
	var notification models.Notification
	if err := s.db.Store().Get(id, &notification); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("notification not found: %s", id)
		}
		return fmt.Errorf("failed to get notification: %w", err)
	}

	notification.Read = true
	if err := s.db.Store().Update(id, &notification); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
