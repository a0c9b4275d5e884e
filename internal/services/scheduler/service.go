package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/common"
	"github.com/ternarybob/fueltrack/internal/interfaces"
)

// userTrigger is one live cron registration.
type userTrigger struct {
	entryID cron.EntryID
	status  *interfaces.ScheduleStatus
}

// Service implements SchedulerService. It holds at most one cron trigger per
// entitled user and rebuilds the whole set whenever settings change. All
// schedule evaluation happens in the single configured timezone, never in the
// server's local zone.
type Service struct {
	config       *common.SchedulerConfig
	userStorage  interfaces.UserStorage
	processing   interfaces.ProcessingService
	eventService interfaces.EventService
	logger       arbor.ILogger
	location     *time.Location
	cron         *cron.Cron

	mu       sync.Mutex
	triggers map[string]*userTrigger
	started  bool
}

// NewService creates the cron orchestrator. The configured timezone must
// resolve; a scheduler in the wrong zone is worse than no scheduler.
func NewService(
	config *common.SchedulerConfig,
	userStorage interfaces.UserStorage,
	processing interfaces.ProcessingService,
	eventService interfaces.EventService,
	logger arbor.ILogger,
) (*Service, error) {
	location, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", config.Timezone, err)
	}

	return &Service{
		config:       config,
		userStorage:  userStorage,
		processing:   processing,
		eventService: eventService,
		logger:       logger,
		location:     location,
		cron:         cron.New(cron.WithLocation(location)),
		triggers:     make(map[string]*userTrigger),
	}, nil
}

// Initialize validates the pipeline, builds the initial schedule set, and
// starts the cron runner. A pipeline that cannot initialize is fatal.
func (s *Service) Initialize(ctx context.Context) error {
	if err := s.processing.Initialize(ctx); err != nil {
		return fmt.Errorf("pipeline initialization failed: %w", err)
	}

	if err := s.RebuildSchedules(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.started {
		s.cron.Start()
		s.started = true
	}
	s.mu.Unlock()

	s.logger.Info().
		Str("timezone", s.config.Timezone).
		Msg("Scheduler started")

	return nil
}

// RebuildSchedules drops every held trigger and re-derives the set from
// current user settings. Users outside the entitled roles, with scheduling
// disabled, or with an unconstrained configuration get no trigger.
func (s *Service) RebuildSchedules(ctx context.Context) error {
	users, err := s.userStorage.ListUsersByRoles(ctx, s.config.Roles)
	if err != nil {
		return fmt.Errorf("failed to list schedulable users: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, trigger := range s.triggers {
		s.cron.Remove(trigger.entryID)
	}
	s.triggers = make(map[string]*userTrigger)

	now := time.Now().In(s.location)
	registered := 0

	for _, user := range users {
		settings, err := s.userStorage.GetSettings(ctx, user.ID)
		if err != nil {
			s.logger.Debug().Str("user_id", user.ID).Msg("No settings stored, no schedule")
			continue
		}
		if !settings.Scheduler.Enabled {
			continue
		}

		derived, warning := deriveSchedule(settings.Scheduler, now, s.location)
		if warning != "" {
			s.logger.Warn().Str("user_id", user.ID).Msg(warning)
		}
		if derived == nil {
			continue
		}

		userID := user.ID
		entryID, err := s.cron.AddFunc(derived.Expr, func() {
			s.fire(userID)
		})
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("user_id", userID).
				Str("expr", derived.Expr).
				Msg("Failed to register schedule")
			continue
		}

		s.triggers[userID] = &userTrigger{
			entryID: entryID,
			status: &interfaces.ScheduleStatus{
				UserID:  userID,
				Expr:    derived.Expr,
				OneShot: derived.OneShot,
			},
		}
		registered++

		s.logger.Info().
			Str("user_id", userID).
			Str("expr", derived.Expr).
			Bool("one_shot", derived.OneShot).
			Msg("Schedule registered")
	}

	s.logger.Info().
		Int("users", len(users)).
		Int("schedules", registered).
		Msg("Schedules rebuilt")

	_ = s.eventService.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventSchedulesRebuilt,
		Payload: map[string]interface{}{"schedules": registered},
	})

	return nil
}

// UpdateSchedulerConfigs is the settings-update seam. The whole set is
// rebuilt rather than patching the one user; the set is small and rebuilds
// are cheap.
func (s *Service) UpdateSchedulerConfigs(ctx context.Context) error {
	return s.RebuildSchedules(ctx)
}

// fire handles one cron firing for one user. One-shot triggers retire
// themselves before the run starts so a matching minute next year cannot
// re-fire them.
func (s *Service) fire(userID string) {
	ctx := context.Background()
	now := time.Now().In(s.location)

	s.mu.Lock()
	trigger, exists := s.triggers[userID]
	if !exists {
		s.mu.Unlock()
		return
	}
	trigger.status.LastRun = &now
	oneShot := trigger.status.OneShot
	if oneShot {
		s.cron.Remove(trigger.entryID)
		delete(s.triggers, userID)
	}
	s.mu.Unlock()

	s.logger.Info().
		Str("user_id", userID).
		Bool("one_shot", oneShot).
		Msg("Schedule fired")

	if oneShot {
		s.retireOneShot(ctx, userID)
	}

	result := s.processing.TriggerDataProcessing(ctx)
	if result.AlreadyRunning {
		s.mu.Lock()
		if t, ok := s.triggers[userID]; ok {
			t.status.LastSkip = fmt.Sprintf("skipped at %s: %s", now.Format(time.RFC3339), result.Message)
		}
		s.mu.Unlock()
		s.logger.Info().Str("user_id", userID).Msg("Scheduled run skipped, pipeline busy")
	}
}

// retireOneShot clears the consumed start date from the user's stored
// settings so the next rebuild derives the recurring schedule, if any.
func (s *Service) retireOneShot(ctx context.Context, userID string) {
	settings, err := s.userStorage.GetSettings(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to load settings to retire one-shot schedule")
		return
	}

	settings.Scheduler.StartDate = nil
	settings.UpdatedAt = time.Now()
	if err := s.userStorage.SaveSettings(ctx, settings); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to clear consumed start date")
		return
	}

	common.SafeGo(s.logger, "one-shot-rebuild-"+userID, func() {
		if err := s.RebuildSchedules(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Failed to rebuild schedules after one-shot")
		}
	})
}

// Statuses returns a snapshot of the live trigger set keyed by user ID.
func (s *Service) Statuses() map[string]*interfaces.ScheduleStatus {
	entries := s.cron.Entries()

	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make(map[string]*interfaces.ScheduleStatus, len(s.triggers))
	for userID, trigger := range s.triggers {
		status := *trigger.status
		for _, entry := range entries {
			if entry.ID == trigger.entryID {
				next := entry.Next
				status.NextRun = &next
				break
			}
		}
		statuses[userID] = &status
	}
	return statuses
}

// Stop halts the cron runner. In-flight pipeline runs are not cancelled.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.cron.Stop()
	s.started = false
	s.logger.Info().Msg("Scheduler stopped")
}
