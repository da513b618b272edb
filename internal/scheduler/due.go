package scheduler

import (
	"time"

	"github.com/jinzhu/now"

	"github.com/crucial707/meddevice/internal/models"
)

// AddPeriod returns t advanced by one inspection period. Month-based periods clamp to the
// last day of the target month, so Jan 31 + 1 month is the last day of February.
// Unknown frequencies count as monthly.
func AddPeriod(t time.Time, frequency string) time.Time {
	switch frequency {
	case models.FrequencyDaily:
		return t.AddDate(0, 0, 1)
	case models.FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case models.FrequencyQuarterly:
		return addMonths(t, 3)
	case models.FrequencyYearly:
		return addMonths(t, 12)
	default:
		return addMonths(t, 1)
	}
}

func addMonths(t time.Time, n int) time.Time {
	first := now.With(t).BeginningOfMonth().AddDate(0, n, 0)
	last := now.With(first).EndOfMonth().Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// IsDue reports whether d needs inspecting on the calendar date of at, evaluated in at's location.
func IsDue(d models.Device, at time.Time) bool {
	if d.InspectionFrequency == models.FrequencyIrregular {
		return false
	}
	if d.LastInspectionAt == nil {
		return true
	}
	next := AddPeriod(d.LastInspectionAt.In(at.Location()), d.InspectionFrequency)
	return !dateOf(next).After(dateOf(at))
}

// NextDue is the date the next inspection falls due, or nil when it never does.
func NextDue(d models.Device, loc *time.Location) *time.Time {
	if d.InspectionFrequency == models.FrequencyIrregular || d.LastInspectionAt == nil {
		return nil
	}
	next := dateOf(AddPeriod(d.LastInspectionAt.In(loc), d.InspectionFrequency))
	return &next
}

func dateOf(t time.Time) time.Time {
	return now.With(t).BeginningOfDay()
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
