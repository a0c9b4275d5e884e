package interfaces

import (
	"context"

	"github.com/ternarybob/fueltrack/internal/models"
)

// UserNotifier is the real-time delivery capability injected into the
// notification fan-out. Delivery is best-effort; failures never prevent the
// durable create.
type UserNotifier interface {
	EmitToUser(userID string, event string, payload interface{}) error
}

// NotificationService creates notifications gated by per-user preferences and
// pushes them over the real-time channel.
type NotificationService interface {
	// CreateNotification returns (nil, nil) when the user's preferences
	// suppress the notification; that is expected behavior, not an error.
	CreateNotification(ctx context.Context, userID string, notificationType models.NotificationType, message string, metadata map[string]interface{}) (*models.Notification, error)

	// NotifyAll fans out to every user in the system, each independently
	// gated. Per-user failures are logged and skipped. Returns the number of
	// notifications actually created.
	NotifyAll(ctx context.Context, notificationType models.NotificationType, message string, metadata map[string]interface{}) int

	// NotifyAdmins fans out to admin-role users only.
	NotifyAdmins(ctx context.Context, notificationType models.NotificationType, message string, metadata map[string]interface{}) int
}
