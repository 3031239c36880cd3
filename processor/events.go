package processor

import (
	"time"

	"propflow/models"
)

// FilterUpcoming drops events that have already commenced. An event on
// today's date (in loc) is kept only when it starts after now; events on
// any other date pass through unchanged. Response order is preserved.
func FilterUpcoming(events []models.Event, now time.Time, loc *time.Location) []models.Event {
	localNow := now.In(loc)

	filtered := make([]models.Event, 0, len(events))
	for _, ev := range events {
		local := ev.CommenceTime.In(loc)
		sameDay := local.Year() == localNow.Year() && local.YearDay() == localNow.YearDay()
		if sameDay && !local.After(localNow) {
			continue
		}
		filtered = append(filtered, ev)
	}
	return filtered
}
