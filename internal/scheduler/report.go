package scheduler

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/crucial707/meddevice/internal/models"
)

// MaxReportRunes is the chat transport's message limit.
const MaxReportRunes = 2000

// FormatDate renders the calendar date of t in its own location as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// AllClearReport is sent when no active device is due.
func AllClearReport(at time.Time) string {
	return "✅ BÁO CÁO KIỂM TRA\n📅 " + FormatDate(at) + "\n\nTất cả thiết bị đến hạn đã được kiểm tra!"
}

// DueDevices filters devices to the active ones that are due at at.
func DueDevices(devices []models.Device, at time.Time) []models.Device {
	var due []models.Device
	for _, d := range devices {
		if d.Status == models.DeviceActive && IsDue(d, at) {
			due = append(due, d)
		}
	}
	return due
}

// BuildUninspectedReport lists active devices that are due. Entries that would push the
// text past MaxReportRunes are dropped.
func BuildUninspectedReport(devices []models.Device, at time.Time) string {
	due := DueDevices(devices, at)
	if len(due) == 0 {
		return AllClearReport(at)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ BÁO CÁO THIẾT BỊ CẦN KIỂM TRA\n📅 %s\n\nCó %d thiết bị đến hạn:\n\n", FormatDate(at), len(due))
	size := utf8.RuneCountInString(b.String())
	for i, d := range due {
		loc := d.Location
		if loc == "" {
			loc = "N/A"
		}
		entry := fmt.Sprintf("%d. %s (%s)\n   📍 %s\n", i+1, d.Name, d.InspectionFrequency, loc)
		n := utf8.RuneCountInString(entry)
		if size+n > MaxReportRunes {
			break
		}
		b.WriteString(entry)
		size += n
	}
	return b.String()
}

// BuildSummaryReport formats the daily counts.
func BuildSummaryReport(c models.ReportCounts, at time.Time) string {
	return fmt.Sprintf("📊 BÁO CÁO TỔNG HỢP\n📅 %s\n\n📱 Tổng thiết bị: %d\n✅ Đang hoạt động: %d\n📋 Kiểm tra hôm nay: %d\n⚠️ Có vấn đề: %d",
		FormatDate(at), c.TotalDevices, c.ActiveDevices, c.InspectionsToday, c.IssuesToday)
}
