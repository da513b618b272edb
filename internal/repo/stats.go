package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/jinzhu/now"

	"github.com/crucial707/meddevice/internal/models"
)

// StatsRepo answers aggregate queries for reports and the dashboard.
type StatsRepo struct {
	DB *sql.DB
}

// NewStatsRepo returns a new StatsRepo.
func NewStatsRepo(db *sql.DB) *StatsRepo {
	return &StatsRepo{DB: db}
}

// DailyCounts counts devices and the inspections recorded on day's calendar date,
// in day's location.
func (r *StatsRepo) DailyCounts(ctx context.Context, day time.Time) (models.ReportCounts, error) {
	var c models.ReportCounts
	start := now.With(day).BeginningOfDay()
	end := start.AddDate(0, 0, 1)
	err := r.DB.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM devices),
			(SELECT COUNT(*) FROM devices WHERE status = 'active'),
			(SELECT COUNT(*) FROM inspections WHERE inspected_at >= $1 AND inspected_at < $2),
			(SELECT COUNT(*) FROM inspections WHERE inspected_at >= $1 AND inspected_at < $2 AND status <> 'good')`,
		start, end,
	).Scan(&c.TotalDevices, &c.ActiveDevices, &c.InspectionsToday, &c.IssuesToday)
	return c, err
}

// Statistics builds the dashboard view for the day containing at. departmentID 0 means all.
func (r *StatsRepo) Statistics(ctx context.Context, departmentID int, at time.Time) (*models.Statistics, error) {
	start := now.With(at).BeginningOfDay()
	end := start.AddDate(0, 0, 1)
	st := &models.Statistics{
		DevicesByStatus:    map[string]int{},
		InspectionsByState: map[string]int{},
		InspectionsByDay:   []models.DayCount{},
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM devices
		WHERE ($1 = 0 OR department_id = $1)
		GROUP BY status`, departmentID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		st.DevicesByStatus[status] = n
		st.TotalDevices += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.DB.QueryContext(ctx, `
		SELECT to_char(i.inspected_at AT TIME ZONE $1, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM inspections i JOIN devices d ON d.id = i.device_id
		WHERE i.inspected_at >= $2 AND ($3 = 0 OR d.department_id = $3)
		GROUP BY day ORDER BY day`,
		at.Location().String(), start.AddDate(0, 0, -29), departmentID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var dc models.DayCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			rows.Close()
			return nil, err
		}
		st.InspectionsByDay = append(st.InspectionsByDay, dc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.DB.QueryContext(ctx, `
		SELECT i.status, COUNT(*)
		FROM inspections i JOIN devices d ON d.id = i.device_id
		WHERE i.inspected_at >= $1 AND i.inspected_at < $2 AND ($3 = 0 OR d.department_id = $3)
		GROUP BY i.status`, start, end, departmentID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		st.InspectionsByState[status] = n
		st.InspectionsToday += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	devices := NewDeviceRepo(r.DB)
	st.NotInspectedToday, err = devices.query(ctx, deviceSelect+`
		WHERE d.status = 'active' AND ($1 = 0 OR d.department_id = $1)
		  AND NOT EXISTS (SELECT 1 FROM inspections x WHERE x.device_id = d.id AND x.inspected_at >= $2 AND x.inspected_at < $3)
		ORDER BY d.name`, departmentID, start, end)
	if err != nil {
		return nil, err
	}

	st.RecentInspections, err = NewInspectionRepo(r.DB).List(ctx, models.InspectionFilter{DepartmentID: departmentID, Limit: 10})
	if err != nil {
		return nil, err
	}
	return st, nil
}
