package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Processing pipeline
	mux.HandleFunc("/api/processing/trigger", s.app.ProcessingHandler.TriggerHandler)
	mux.HandleFunc("/api/processing/history", s.app.ProcessingHandler.HistoryHandler)
	mux.HandleFunc("/api/processing/new-data", s.app.ProcessingHandler.NewDataHandler)
	mux.HandleFunc("/api/processing/compare", s.app.ProcessingHandler.CompareHandler)

	// API routes - Scheduler
	mux.HandleFunc("/api/scheduler/status", s.app.SchedulerHandler.StatusHandler)
	mux.HandleFunc("/api/scheduler/rebuild", s.app.SchedulerHandler.RebuildHandler)

	// API routes - Flight and fuel records
	mux.HandleFunc("/api/flights", s.app.DataHandler.FlightsHandler)
	mux.HandleFunc("/api/flights/", s.app.DataHandler.FlightHandler)
	mux.HandleFunc("/api/fuel", s.app.DataHandler.FuelHandler)
	mux.HandleFunc("/api/fuel/", s.app.DataHandler.FuelRecordHandler)

	// API routes - Users and settings
	mux.HandleFunc("/api/users", s.app.UserHandler.UsersHandler)
	mux.HandleFunc("/api/users/", s.app.UserHandler.UserRoutes)

	// API routes - Notifications
	mux.HandleFunc("/api/notifications", s.app.NotificationHandler.ListHandler)
	mux.HandleFunc("/api/notifications/", s.handleNotificationRoutes)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleNotificationRoutes routes /api/notifications/{id}/read
func (s *Server) handleNotificationRoutes(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/read") {
		s.app.NotificationHandler.MarkReadHandler(w, r)
		return
	}
	s.app.APIHandler.NotFoundHandler(w, r)
}
