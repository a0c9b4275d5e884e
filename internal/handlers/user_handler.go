package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/interfaces"
	"github.com/ternarybob/fueltrack/internal/models"
)

// ScheduleRebuilder is the settings-update seam: any change to a user's
// scheduler configuration re-derives the full schedule set.
type ScheduleRebuilder interface {
	UpdateSchedulerConfigs(ctx context.Context) error
}

// UserHandler manages users and their settings.
type UserHandler struct {
	userStorage interfaces.UserStorage
	rebuilder   ScheduleRebuilder
	logger      arbor.ILogger
}

func NewUserHandler(userStorage interfaces.UserStorage, rebuilder ScheduleRebuilder, logger arbor.ILogger) *UserHandler {
	return &UserHandler{
		userStorage: userStorage,
		rebuilder:   rebuilder,
		logger:      logger,
	}
}

type userRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
	Role  string `json:"role" validate:"required,oneof=admin data_manager viewer"`
}

type settingsRequest struct {
	Scheduler     models.SchedulerConfig      `json:"scheduler"`
	Notifications models.NotificationSettings `json:"notifications"`
}

// UsersHandler handles GET (list) and POST (create) on the collection.
func (h *UserHandler) UsersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		users, err := h.userStorage.ListUsers(r.Context())
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to list users")
			WriteError(w, http.StatusInternalServerError, "Failed to list users")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"users": users, "count": len(users)})

	case "POST":
		var req userRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		user := &models.User{
			ID:        uuid.New().String(),
			Email:     req.Email,
			Name:      req.Name,
			Role:      req.Role,
			CreatedAt: time.Now(),
		}
		if err := h.userStorage.SaveUser(r.Context(), user); err != nil {
			h.logger.Error().Err(err).Msg("Failed to save user")
			WriteError(w, http.StatusInternalServerError, "Failed to save user")
			return
		}
		WriteJSON(w, http.StatusCreated, user)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// UserRoutes dispatches /api/users/{id} and /api/users/{id}/settings.
func (h *UserHandler) UserRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/users/")

	if userID, ok := strings.CutSuffix(path, "/settings"); ok && userID != "" {
		h.settingsRoutes(w, r, userID)
		return
	}

	if path == "" {
		WriteError(w, http.StatusBadRequest, "User ID required")
		return
	}

	if !RequireMethod(w, r, "GET") {
		return
	}
	user, err := h.userStorage.GetUser(r.Context(), path)
	if err != nil {
		WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

func (h *UserHandler) settingsRoutes(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case "GET":
		settings, err := h.userStorage.GetSettings(r.Context(), userID)
		if err != nil {
			// Users without stored settings get the defaults the services use.
			settings = &models.UserSettings{
				UserID:        userID,
				Notifications: models.DefaultNotificationSettings(),
			}
		}
		WriteJSON(w, http.StatusOK, settings)

	case "PUT":
		h.updateSettings(w, r, userID)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// updateSettings stores the new settings and rebuilds schedules so the change
// takes effect without a restart.
func (h *UserHandler) updateSettings(w http.ResponseWriter, r *http.Request, userID string) {
	if _, err := h.userStorage.GetUser(r.Context(), userID); err != nil {
		WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateSchedulerConfig(&req.Scheduler); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateNotificationSettings(&req.Notifications); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	settings := &models.UserSettings{
		UserID:        userID,
		Scheduler:     req.Scheduler,
		Notifications: req.Notifications,
		UpdatedAt:     time.Now(),
	}
	if err := h.userStorage.SaveSettings(r.Context(), settings); err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to save settings")
		WriteError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	if err := h.rebuilder.UpdateSchedulerConfigs(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to rebuild schedules after settings update")
		WriteError(w, http.StatusInternalServerError, "Settings saved but schedule rebuild failed")
		return
	}

	WriteJSON(w, http.StatusOK, settings)
}
