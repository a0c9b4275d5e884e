package interfaces

import (
	"context"
	"time"
)

// ScheduleStatus describes one user's live trigger.
type ScheduleStatus struct {
	UserID   string     `json:"user_id"`
	Expr     string     `json:"expr"`
	OneShot  bool       `json:"one_shot"`
	NextRun  *time.Time `json:"next_run,omitempty"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	LastSkip string     `json:"last_skip,omitempty"`
}

// SchedulerService owns one scheduled trigger per user with a valid, enabled
// scheduler configuration.
type SchedulerService interface {
	// Initialize performs fatal dependency checks (pipeline initialization)
	// and builds the initial schedule set.
	Initialize(ctx context.Context) error

	// RebuildSchedules discards every held trigger and re-derives the set
	// from current user settings. Called at startup and from the settings
	// update path.
	RebuildSchedules(ctx context.Context) error

	// UpdateSchedulerConfigs is the settings-update seam; alias for
	// RebuildSchedules.
	UpdateSchedulerConfigs(ctx context.Context) error

	// Statuses returns the live trigger set keyed by user ID.
	Statuses() map[string]*ScheduleStatus

	// Stop halts all triggers. In-flight pipeline runs are not cancelled.
	Stop()
}
