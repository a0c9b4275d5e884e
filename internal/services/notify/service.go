package notify

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/interfaces"
	"github.com/ternarybob/fueltrack/internal/models"
)

// Service implements NotificationService. The real-time notifier is injected
// at construction; a nil notifier disables real-time delivery but never the
// durable create.
type Service struct {
	userStorage         interfaces.UserStorage
	notificationStorage interfaces.NotificationStorage
	notifier            interfaces.UserNotifier
	eventService        interfaces.EventService
	logger              arbor.ILogger
}

// NewService creates a new notification fan-out service
func NewService(
	userStorage interfaces.UserStorage,
	notificationStorage interfaces.NotificationStorage,
	notifier interfaces.UserNotifier,
	eventService interfaces.EventService,
	logger arbor.ILogger,
) interfaces.NotificationService {
	return &Service{
		userStorage:         userStorage,
		notificationStorage: notificationStorage,
		notifier:            notifier,
		eventService:        eventService,
		logger:              logger,
	}
}

// CreateNotification persists and pushes one notification, gated by the
// target user's preferences. Returns (nil, nil) when preferences suppress
// delivery; that is not an error condition.
func (s *Service) CreateNotification(ctx context.Context, userID string, notificationType models.NotificationType, message string, metadata map[string]interface{}) (*models.Notification, error) {
	prefs := s.preferencesFor(ctx, userID)

	if !prefs.Allows(string(notificationType)) {
		s.logger.Debug().
			Str("user_id", userID).
			Str("type", string(notificationType)).
			Msg("Notification suppressed by user preferences")
		return nil, nil
	}

	notification := models.NewNotification(userID, notificationType, message, metadata)

	if err := s.notificationStorage.SaveNotification(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	// Real-time delivery is best-effort. The notification is already durable.
	if s.notifier != nil {
		if err := s.notifier.EmitToUser(userID, "notification", notification); err != nil {
			s.logger.Warn().
				Err(err).
				Str("user_id", userID).
				Msg("Real-time notification delivery failed")
		}
	}

	if s.eventService != nil {
		_ = s.eventService.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventNotificationCreated,
			Payload: notification,
		})
	}

	return notification, nil
}

// NotifyAll fans out to every user, each independently gated. A failure for
// one user never aborts the batch.
func (s *Service) NotifyAll(ctx context.Context, notificationType models.NotificationType, message string, metadata map[string]interface{}) int {
	users, err := s.userStorage.ListUsers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users for notification fan-out")
		return 0
	}
	return s.fanOut(ctx, users, notificationType, message, metadata)
}

// NotifyAdmins fans out to admin-role users only.
func (s *Service) NotifyAdmins(ctx context.Context, notificationType models.NotificationType, message string, metadata map[string]interface{}) int {
	admins, err := s.userStorage.ListUsersByRoles(ctx, []string{models.RoleAdmin})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list admin users for notification fan-out")
		return 0
	}
	return s.fanOut(ctx, admins, notificationType, message, metadata)
}

func (s *Service) fanOut(ctx context.Context, users []*models.User, notificationType models.NotificationType, message string, metadata map[string]interface{}) int {
	sent := 0
	for _, user := range users {
		notification, err := s.CreateNotification(ctx, user.ID, notificationType, message, metadata)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("user_id", user.ID).
				Msg("Skipping user in notification fan-out")
			continue
		}
		if notification != nil {
			sent++
		}
	}

	s.logger.Info().
		Str("type", string(notificationType)).
		Int("sent", sent).
		Int("targets", len(users)).
		Msg("Notification fan-out complete")

	return sent
}

// preferencesFor loads the user's notification settings, defaulting to
// "enabled, no type restriction" when none exist or the read fails.
func (s *Service) preferencesFor(ctx context.Context, userID string) models.NotificationSettings {
	settings, err := s.userStorage.GetSettings(ctx, userID)
	if err != nil {
		return models.DefaultNotificationSettings()
	}
	return settings.Notifications
}
