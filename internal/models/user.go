package models

import "time"

// User roles entitled to scheduled data processing. Other roles may hold
// accounts but never receive cron triggers.
const (
	RoleAdmin       = "admin"
	RoleDataManager = "data_manager"
	RoleViewer      = "viewer"
)

// User represents an account known to the system. Authentication itself is
// handled outside this core; only identity and role matter here.
type User struct {
	ID        string    `json:"id" badgerhold:"key"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin returns true for users that receive pipeline error notifications.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SchedulerConfig is the per-user cron configuration embedded in settings.
// Each field is an ordered set of small integers; an empty set means "any".
// A future StartDate overrides the recurring fields with a one-shot trigger.
type SchedulerConfig struct {
	Enabled   bool       `json:"enabled"`
	Hours     []int      `json:"hours"`    // 0-23
	Days      []int      `json:"days"`     // 1-31
	Months    []int      `json:"months"`   // 1-12
	Weekdays  []int      `json:"weekdays"` // 0-6, Sunday=0
	StartDate *time.Time `json:"start_date,omitempty"`
}

// IsWildcard returns true when every recurring field is empty. Such a config
// constrains nothing and must not produce a trigger.
func (c *SchedulerConfig) IsWildcard() bool {
	return len(c.Hours) == 0 && len(c.Days) == 0 && len(c.Months) == 0 && len(c.Weekdays) == 0
}

// NotificationSettings gates notification delivery per user. Types empty
// means every type is allowed.
type NotificationSettings struct {
	Enabled bool     `json:"enabled"`
	Types   []string `json:"types,omitempty"`
}

// DefaultNotificationSettings is applied when a user has no stored settings.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{Enabled: true}
}

// Allows reports whether the given notification type passes this user's
// preference gate.
func (n *NotificationSettings) Allows(notificationType string) bool {
	if !n.Enabled {
		return false
	}
	if len(n.Types) == 0 {
		return true
	}
	for _, t := range n.Types {
		if t == notificationType {
			return true
		}
	}
	return false
}

// UserSettings holds the per-user configuration this core reads.
type UserSettings struct {
	UserID        string               `json:"user_id" badgerhold:"key"`
	Scheduler     SchedulerConfig      `json:"scheduler"`
	Notifications NotificationSettings `json:"notifications"`
	UpdatedAt     time.Time            `json:"updated_at"`
}
