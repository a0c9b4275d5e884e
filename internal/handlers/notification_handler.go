package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/interfaces"
)

// NotificationHandler serves stored notifications. Creation happens only via
// the fan-out service; this surface is read and acknowledge.
type NotificationHandler struct {
	notificationStorage interfaces.NotificationStorage
	logger              arbor.ILogger
}

func NewNotificationHandler(notificationStorage interfaces.NotificationStorage, logger arbor.ILogger) *NotificationHandler {
	return &NotificationHandler{
		notificationStorage: notificationStorage,
		logger:              logger,
	}
}

// ListHandler returns a user's notifications, newest first.
func (h *NotificationHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	limit := QueryInt(r, "limit", 50)
	notifications, err := h.notificationStorage.ListForUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list notifications")
		WriteError(w, http.StatusInternalServerError, "Failed to list notifications")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// MarkReadHandler acknowledges one notification: POST /api/notifications/{id}/read.
func (h *NotificationHandler) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/notifications/")
	id := strings.TrimSuffix(path, "/read")
	if id == "" || id == path {
		WriteError(w, http.StatusBadRequest, "Notification ID required")
		return
	}

	if err := h.notificationStorage.MarkRead(r.Context(), id); err != nil {
		WriteError(w, http.StatusNotFound, "Notification not found")
		return
	}

	WriteSuccess(w, "Notification marked as read")
}
