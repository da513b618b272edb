package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crucial707/meddevice/internal/models"
)

func intPtr(v int) *int { return &v }

func schedule(kind, at string, d *int, lastRun *time.Time) models.ScheduledReport {
	return models.ScheduledReport{ID: 1, Name: "r", ScheduleType: kind, ScheduleTime: at, ScheduleDay: d, ReportType: models.ReportUninspected, Active: true, LastRun: lastRun, ChatIDs: []string{"a"}}
}

func TestShouldRun_WeeklyMonday(t *testing.T) {
	monday := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	yesterday := monday.AddDate(0, 0, -1)
	earlierToday := monday.Add(-2 * time.Hour)

	assert.True(t, ShouldRun(schedule(models.ScheduleWeekly, "08:00", intPtr(1), &yesterday), monday))
	assert.True(t, ShouldRun(schedule(models.ScheduleWeekly, "08:00", intPtr(1), nil), monday))
	assert.False(t, ShouldRun(schedule(models.ScheduleWeekly, "08:00", intPtr(1), &earlierToday), monday), "already ran today")
	assert.False(t, ShouldRun(schedule(models.ScheduleWeekly, "08:00", intPtr(2), nil), monday), "wrong weekday")
	assert.False(t, ShouldRun(schedule(models.ScheduleWeekly, "08:01", intPtr(1), nil), monday), "wrong minute")
	assert.False(t, ShouldRun(schedule(models.ScheduleWeekly, "08:00", nil, nil), monday), "no day configured")
}

func TestShouldRun_Inactive(t *testing.T) {
	s := schedule(models.ScheduleDaily, "08:00", nil, nil)
	s.Active = false
	assert.False(t, ShouldRun(s, time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)))
}

func TestShouldRun_LastRunComparedInLocalDate(t *testing.T) {
	ict := time.FixedZone("ICT", 7*3600)
	at := time.Date(2024, 1, 15, 6, 0, 0, 0, ict)
	// 18:00 UTC on Jan 14 is 01:00 on Jan 15 local.
	lastRun := time.Date(2024, 1, 14, 18, 0, 0, 0, time.UTC)
	assert.False(t, ShouldRun(schedule(models.ScheduleDaily, "06:00", nil, &lastRun), at))
}

func TestShouldRun_Monthly(t *testing.T) {
	assert.True(t, ShouldRun(schedule(models.ScheduleMonthly, "07:30", intPtr(15), nil), time.Date(2024, 2, 15, 7, 30, 0, 0, time.UTC)))
	assert.False(t, ShouldRun(schedule(models.ScheduleMonthly, "07:30", intPtr(15), nil), time.Date(2024, 2, 16, 7, 30, 0, 0, time.UTC)))
	assert.True(t, ShouldRun(schedule(models.ScheduleMonthly, "07:30", intPtr(31), nil), time.Date(2024, 3, 31, 7, 30, 0, 0, time.UTC)))
}

func TestShouldRun_Quarterly(t *testing.T) {
	for _, m := range []time.Month{time.January, time.April, time.July, time.October} {
		assert.True(t, ShouldRun(schedule(models.ScheduleQuarterly, "09:00", nil, nil), time.Date(2024, m, 1, 9, 0, 0, 0, time.UTC)), m.String())
	}
	assert.False(t, ShouldRun(schedule(models.ScheduleQuarterly, "09:00", nil, nil), time.Date(2024, time.February, 1, 9, 0, 0, 0, time.UTC)))
	assert.True(t, ShouldRun(schedule(models.ScheduleQuarterly, "09:00", intPtr(10), nil), time.Date(2024, time.July, 10, 9, 0, 0, 0, time.UTC)))
	assert.False(t, ShouldRun(schedule(models.ScheduleQuarterly, "09:00", intPtr(10), nil), time.Date(2024, time.July, 1, 9, 0, 0, 0, time.UTC)))
}

func TestShouldRun_UnknownType(t *testing.T) {
	assert.False(t, ShouldRun(schedule("hourly", "09:00", nil, nil), time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
}
