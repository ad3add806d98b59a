package dialog

import (
	"fmt"
	"time"

	"foodie-skill/internal/domain"
)

// TimeOfDayAt buckets a local time into a meal period. The hour rounds up
// from :45 onwards.
func TimeOfDayAt(local time.Time) domain.TimeOfDay {
	hour := local.Hour()
	if local.Minute() >= 45 {
		hour++
	}
	switch {
	case hour >= 6 && hour <= 10:
		return domain.Breakfast
	case hour == 11:
		return domain.Brunch
	case hour >= 12 && hour <= 16:
		return domain.Lunch
	case hour >= 17 && hour <= 23:
		return domain.Dinner
	}
	return domain.Midnight
}

// LocalTime converts now into the named IANA timezone.
func LocalTime(now time.Time, timezone string) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("dialog: load timezone %q: %w", timezone, err)
	}
	return now.In(loc), nil
}
