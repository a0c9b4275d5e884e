package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/fueltrack/internal/models"
)

// schedule is a derived cron trigger for one user.
type schedule struct {
	Expr    string
	OneShot bool
}

// deriveSchedule translates a user's scheduler configuration into a standard
// five-field cron expression. The minute field is always 0: recurring runs
// fire on the hour.
//
// Returns nil when the configuration yields no trigger. The second return is
// a warning for configurations that are accepted with degraded meaning.
//
// Rules, in order:
//   - a StartDate in the future overrides the recurring fields entirely and
//     produces a one-shot expression pinned to that instant's minute, hour,
//     day and month
//   - a StartDate in the past is ignored with a warning and the recurring
//     fields apply
//   - recurring fields that are all empty would produce "0 * * * *", an
//     every-hour trigger the user never asked for, so they yield no trigger
func deriveSchedule(cfg models.SchedulerConfig, now time.Time, loc *time.Location) (*schedule, string) {
	warning := ""

	if cfg.StartDate != nil {
		start := cfg.StartDate.In(loc)
		if start.After(now) {
			expr := fmt.Sprintf("%d %d %d %d *", start.Minute(), start.Hour(), start.Day(), int(start.Month()))
			return &schedule{Expr: expr, OneShot: true}, ""
		}
		warning = fmt.Sprintf("start date %s is in the past, falling back to recurring schedule", start.Format(time.RFC3339))
	}

	if cfg.IsWildcard() {
		return nil, warning
	}

	expr := fmt.Sprintf("0 %s %s %s %s",
		joinField(cfg.Hours),
		joinField(cfg.Days),
		joinField(cfg.Months),
		joinField(cfg.Weekdays),
	)
	return &schedule{Expr: expr}, warning
}

// joinField renders one cron field from an integer set. Empty means
// unconstrained.
func joinField(values []int) string {
	if len(values) == 0 {
		return "*"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
