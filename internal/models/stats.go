package models

// ReportCounts feeds the summary chat report.
type ReportCounts struct {
	TotalDevices     int
	ActiveDevices    int
	InspectionsToday int
	IssuesToday      int
}

// DayCount is the number of inspections on one calendar date (YYYY-MM-DD).
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Statistics backs the dashboard.
type Statistics struct {
	TotalDevices       int            `json:"total_devices"`
	DevicesByStatus    map[string]int `json:"devices_by_status"`
	InspectionsToday   int            `json:"inspections_today"`
	InspectionsByDay   []DayCount     `json:"inspections_by_day"`
	InspectionsByState map[string]int `json:"inspections_by_status"`
	NotInspectedToday  []Device       `json:"not_inspected_today"`
	RecentInspections  []Inspection   `json:"recent_inspections"`
}
