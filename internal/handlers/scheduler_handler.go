package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/interfaces"
)

// SchedulerHandler exposes schedule inspection and rebuild over HTTP.
type SchedulerHandler struct {
	schedulerService interfaces.SchedulerService
	logger           arbor.ILogger
}

func NewSchedulerHandler(schedulerService interfaces.SchedulerService, logger arbor.ILogger) *SchedulerHandler {
	return &SchedulerHandler{
		schedulerService: schedulerService,
		logger:           logger,
	}
}

// StatusHandler returns the live trigger set keyed by user ID.
func (h *SchedulerHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	statuses := h.schedulerService.Statuses()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"schedules": statuses,
		"count":     len(statuses),
	})
}

// RebuildHandler re-derives every schedule from current user settings.
func (h *SchedulerHandler) RebuildHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.schedulerService.RebuildSchedules(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Schedule rebuild failed")
		WriteError(w, http.StatusInternalServerError, "Schedule rebuild failed")
		return
	}

	WriteSuccess(w, "Schedules rebuilt")
}
