package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/common"
	"github.com/ternarybob/fueltrack/internal/handlers"
	"github.com/ternarybob/fueltrack/internal/interfaces"
	"github.com/ternarybob/fueltrack/internal/services/events"
	"github.com/ternarybob/fueltrack/internal/services/notify"
	"github.com/ternarybob/fueltrack/internal/services/processing"
	"github.com/ternarybob/fueltrack/internal/services/scheduler"
	"github.com/ternarybob/fueltrack/internal/storage"
)

// App holds all application dependencies, wired in dependency order: storage,
// events, websocket, notifications, processing, scheduler, then the HTTP
// handlers on top.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService

	ProcessingService   interfaces.ProcessingService
	SchedulerService    interfaces.SchedulerService
	NotificationService interfaces.NotificationService

	WSHandler           *handlers.WebSocketHandler
	APIHandler          *handlers.APIHandler
	ProcessingHandler   *handlers.ProcessingHandler
	SchedulerHandler    *handlers.SchedulerHandler
	DataHandler         *handlers.DataHandler
	NotificationHandler *handlers.NotificationHandler
	UserHandler         *handlers.UserHandler
}

// New creates the application and wires every service.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = storageManager

	a.EventService = events.NewService(logger)

	// The websocket handler doubles as the real-time notifier for the
	// fan-out service.
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, logger, &config.WebSocket)

	a.NotificationService = notify.NewService(
		storageManager.UserStorage(),
		storageManager.NotificationStorage(),
		a.WSHandler,
		a.EventService,
		logger,
	)

	a.ProcessingService = processing.NewService(
		&config.Pipeline,
		storageManager.FlightStorage(),
		storageManager.FuelStorage(),
		storageManager.RunHistoryStorage(),
		a.NotificationService,
		a.EventService,
		logger,
	)

	schedulerService, err := scheduler.NewService(
		&config.Scheduler,
		storageManager.UserStorage(),
		a.ProcessingService,
		a.EventService,
		logger,
	)
	if err != nil {
		return nil, err
	}
	a.SchedulerService = schedulerService

	a.APIHandler = handlers.NewAPIHandler()
	a.ProcessingHandler = handlers.NewProcessingHandler(a.ProcessingService, logger)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.SchedulerService, logger)
	a.DataHandler = handlers.NewDataHandler(storageManager.FlightStorage(), storageManager.FuelStorage(), logger)
	a.NotificationHandler = handlers.NewNotificationHandler(storageManager.NotificationStorage(), logger)
	a.UserHandler = handlers.NewUserHandler(storageManager.UserStorage(), a.SchedulerService, logger)

	logger.Info().Msg("Application wired")
	return a, nil
}

// Initialize runs fatal startup checks and builds the initial schedule set.
func (a *App) Initialize(ctx context.Context) error {
	return a.SchedulerService.Initialize(ctx)
}

// Close shuts down services in reverse dependency order.
func (a *App) Close() error {
	a.SchedulerService.Stop()

	if err := a.EventService.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Event service close failed")
	}

	if err := a.StorageManager.Close(); err != nil {
		return fmt.Errorf("storage close failed: %w", err)
	}

	a.Logger.Info().Msg("Application stopped")
	return nil
}
