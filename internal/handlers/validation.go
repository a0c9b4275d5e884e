package handlers

import (
	"fmt"

	"github.com/ternarybob/fueltrack/internal/models"
)

// validateSchedulerConfig checks the integer sets against cron field ranges.
// Values outside range would be silently rejected by the cron parser much
// later; rejecting them at the boundary gives the user an actionable error.
func validateSchedulerConfig(cfg *models.SchedulerConfig) error {
	if err := checkRange("hours", cfg.Hours, 0, 23); err != nil {
		return err
	}
	if err := checkRange("days", cfg.Days, 1, 31); err != nil {
		return err
	}
	if err := checkRange("months", cfg.Months, 1, 12); err != nil {
		return err
	}
	return checkRange("weekdays", cfg.Weekdays, 0, 6)
}

func checkRange(field string, values []int, min, max int) error {
	for _, v := range values {
		if v < min || v > max {
			return fmt.Errorf("scheduler %s value %d out of range %d-%d", field, v, min, max)
		}
	}
	return nil
}

// notificationTypes is the closed set of tags a preference allow-list may
// name. The fan-out trusts its callers, so unknown tags are rejected here.
var notificationTypes = map[string]bool{
	string(models.NotificationSystem):             true,
	string(models.NotificationUpdate):             true,
	string(models.NotificationDataMissing):        true,
	string(models.NotificationAlert):              true,
	string(models.NotificationWarning):            true,
	string(models.NotificationSuccess):            true,
	string(models.NotificationImportRejected):     true,
	string(models.NotificationProcessingError):    true,
	string(models.NotificationMissingDataWarning): true,
}

// validateNotificationSettings checks an allow-list against the closed tag
// set. An unknown tag would silently suppress nothing, which reads to the
// user as notifications working when they are not.
func validateNotificationSettings(settings *models.NotificationSettings) error {
	for _, t := range settings.Types {
		if !notificationTypes[t] {
			return fmt.Errorf("unknown notification type: %s", t)
		}
	}
	return nil
}
