package models

import "time"

// Schedule cadences.
const (
	ScheduleDaily     = "daily"
	ScheduleWeekly    = "weekly"
	ScheduleMonthly   = "monthly"
	ScheduleQuarterly = "quarterly"
)

// Report kinds.
const (
	ReportUninspected = "uninspected"
	ReportSummary     = "summary"
)

// ScheduledReport is a recurring report sent to chat recipients.
// ScheduleDay is the weekday (0=Sunday) for weekly and the day of month for monthly/quarterly.
type ScheduledReport struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	ScheduleType string     `json:"schedule_type"`
	ScheduleTime string     `json:"schedule_time"`
	ScheduleDay  *int       `json:"schedule_day"`
	ChatIDs      []string   `json:"chat_ids"`
	ReportType   string     `json:"report_type"`
	Active       bool       `json:"active"`
	LastRun      *time.Time `json:"last_run"`
	CreatedAt    time.Time  `json:"created_at"`
}
