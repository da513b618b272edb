package scheduler

import (
	"time"

	"github.com/crucial707/meddevice/internal/models"
)

var quarterStartMonths = map[time.Month]bool{
	time.January: true, time.April: true, time.July: true, time.October: true,
}

// ShouldRun reports whether s fires on the tick at. at must already be in the reporting
// location; last_run is compared as a calendar date in that location.
func ShouldRun(s models.ScheduledReport, at time.Time) bool {
	if !s.Active || s.ScheduleTime != at.Format("15:04") {
		return false
	}
	if s.LastRun != nil && sameDate(s.LastRun.In(at.Location()), at) {
		return false
	}
	return cadenceMatches(s, at)
}

func cadenceMatches(s models.ScheduledReport, at time.Time) bool {
	switch s.ScheduleType {
	case models.ScheduleDaily:
		return true
	case models.ScheduleWeekly:
		return s.ScheduleDay != nil && int(at.Weekday()) == *s.ScheduleDay
	case models.ScheduleMonthly:
		return s.ScheduleDay != nil && at.Day() == *s.ScheduleDay
	case models.ScheduleQuarterly:
		day := 1
		if s.ScheduleDay != nil {
			day = *s.ScheduleDay
		}
		return quarterStartMonths[at.Month()] && at.Day() == day
	}
	return false
}
