package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crucial707/meddevice/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func device(freq string, last *time.Time) models.Device {
	return models.Device{ID: "d1", Name: "Monitor", Location: "ICU", Status: models.DeviceActive, InspectionFrequency: freq, LastInspectionAt: last}
}

func TestAddPeriod_FromMidJanuary(t *testing.T) {
	last := day(2024, 1, 15)
	cases := map[string]time.Time{
		models.FrequencyDaily:     day(2024, 1, 16),
		models.FrequencyWeekly:    day(2024, 1, 22),
		models.FrequencyMonthly:   day(2024, 2, 15),
		models.FrequencyQuarterly: day(2024, 4, 15),
		models.FrequencyYearly:    day(2025, 1, 15),
	}
	for freq, want := range cases {
		assert.Equal(t, want, AddPeriod(last, freq), freq)
	}
}

func TestAddPeriod_ClampsToMonthEnd(t *testing.T) {
	assert.Equal(t, day(2024, 2, 29), AddPeriod(day(2024, 1, 31), models.FrequencyMonthly))
	assert.Equal(t, day(2023, 2, 28), AddPeriod(day(2023, 1, 31), models.FrequencyMonthly))
	assert.Equal(t, day(2024, 2, 29), AddPeriod(day(2023, 11, 30), models.FrequencyQuarterly))
	assert.Equal(t, day(2025, 2, 28), AddPeriod(day(2024, 2, 29), models.FrequencyYearly))
}

func TestAddPeriod_KeepsTimeOfDay(t *testing.T) {
	last := time.Date(2024, 3, 31, 14, 5, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 4, 30, 14, 5, 0, 0, time.UTC), AddPeriod(last, models.FrequencyMonthly))
}

func TestAddPeriod_UnknownIsMonthly(t *testing.T) {
	last := day(2024, 1, 15)
	assert.Equal(t, AddPeriod(last, models.FrequencyMonthly), AddPeriod(last, "fortnightly"))
	assert.Equal(t, AddPeriod(last, models.FrequencyMonthly), AddPeriod(last, ""))
}

func TestIsDue_IrregularNeverDue(t *testing.T) {
	long := day(2000, 1, 1)
	assert.False(t, IsDue(device(models.FrequencyIrregular, nil), day(2024, 1, 15)))
	assert.False(t, IsDue(device(models.FrequencyIrregular, &long), day(2024, 1, 15)))
}

func TestIsDue_NeverInspected(t *testing.T) {
	for _, freq := range []string{models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly, models.FrequencyQuarterly, models.FrequencyYearly, "bogus"} {
		assert.True(t, IsDue(device(freq, nil), day(2024, 1, 15)), freq)
	}
}

func TestIsDue_Boundary(t *testing.T) {
	last := time.Date(2024, 1, 15, 16, 0, 0, 0, time.UTC)
	d := device(models.FrequencyWeekly, &last)
	assert.False(t, IsDue(d, time.Date(2024, 1, 21, 23, 59, 0, 0, time.UTC)))
	assert.True(t, IsDue(d, time.Date(2024, 1, 22, 0, 1, 0, 0, time.UTC)), "due on the next-due date even before the time of day")
}

func TestIsDue_Monotonic(t *testing.T) {
	last := day(2024, 1, 31)
	for _, freq := range []string{models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly, models.FrequencyQuarterly, models.FrequencyYearly} {
		d := device(freq, &last)
		wasDue := false
		for at := last; at.Before(day(2025, 6, 1)); at = at.Add(13 * time.Hour) {
			due := IsDue(d, at)
			if wasDue {
				assert.True(t, due, "%s became not due at %v", freq, at)
			}
			wasDue = wasDue || due
		}
		assert.True(t, wasDue, freq)
	}
}

func TestIsDue_UsesReportingTimezone(t *testing.T) {
	ict := time.FixedZone("ICT", 7*3600)
	// 03:00 on Jan 15 local.
	last := time.Date(2024, 1, 14, 20, 0, 0, 0, time.UTC)
	d := device(models.FrequencyDaily, &last)

	// 23:30 on Jan 15 local, still the inspection day there.
	at := time.Date(2024, 1, 15, 16, 30, 0, 0, time.UTC)
	assert.True(t, IsDue(d, at), "UTC view: inspected Jan 14, due Jan 15")
	assert.False(t, IsDue(d, at.In(ict)), "local view: inspected Jan 15, due Jan 16")
}

func TestNextDue(t *testing.T) {
	last := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	next := NextDue(device(models.FrequencyQuarterly, &last), time.UTC)
	if assert.NotNil(t, next) {
		assert.Equal(t, day(2024, 4, 15), *next)
	}
	assert.Nil(t, NextDue(device(models.FrequencyIrregular, &last), time.UTC))
	assert.Nil(t, NextDue(device(models.FrequencyDaily, nil), time.UTC))
}
