package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType is a closed set of string tags. Callers are responsible
// for using only these values; the fan-out does not re-validate (request
// validation happens at the HTTP boundary).
type NotificationType string

const (
	NotificationSystem      NotificationType = "system"
	NotificationUpdate      NotificationType = "update"
	NotificationDataMissing NotificationType = "data_missing"
	NotificationAlert       NotificationType = "alert"
	NotificationWarning     NotificationType = "warning"
	NotificationSuccess     NotificationType = "success"

	// Pipeline-specific tags.
	NotificationImportRejected     NotificationType = "import_rejected"
	NotificationProcessingError    NotificationType = "processing_error"
	NotificationMissingDataWarning NotificationType = "missing_data_warning"
)

// Notification is a durable per-user message. Ownership transfers to storage
// at creation; the read flag is mutated by the notification HTTP surface.
type Notification struct {
	ID        string                 `json:"id" badgerhold:"key"`
	UserID    string                 `json:"user_id"`
	Type      NotificationType       `json:"type"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Read      bool                   `json:"read"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewNotification creates an unread notification for a user.
func NewNotification(userID string, notificationType NotificationType, message string, metadata map[string]interface{}) *Notification {
	return &Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      notificationType,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}
