package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStatsRepo_DailyCounts_UsesLocalDay(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	loc := time.FixedZone("ICT", 7*3600)
	at := time.Date(2024, 1, 15, 1, 30, 0, 0, loc)
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, loc)
	mock.ExpectQuery(`SELECT\s+\(SELECT COUNT\(\*\) FROM devices\)`).
		WithArgs(start, start.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows([]string{"total", "active", "today", "issues"}).AddRow(12, 10, 4, 1))

	c, err := NewStatsRepo(db).DailyCounts(context.Background(), at)
	if err != nil {
		t.Fatalf("DailyCounts: %v", err)
	}
	if c.TotalDevices != 12 || c.ActiveDevices != 10 || c.InspectionsToday != 4 || c.IssuesToday != 1 {
		t.Errorf("unexpected counts: %+v", c)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestStatsRepo_Statistics(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM devices`).
		WithArgs(0).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("active", 8).AddRow("maintenance", 2))
	mock.ExpectQuery(`to_char`).
		WillReturnRows(sqlmock.NewRows([]string{"day", "count"}).AddRow("2024-01-14", 3).AddRow("2024-01-15", 5))
	mock.ExpectQuery(`SELECT i.status, COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("good", 4).AddRow("issue", 1))
	mock.ExpectQuery(`NOT EXISTS`).
		WillReturnRows(sqlmock.NewRows(deviceCols))
	mock.ExpectQuery(`FROM inspections i .* LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(inspectionCols))

	st, err := NewStatsRepo(db).Statistics(context.Background(), 0, at)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if st.TotalDevices != 10 || st.DevicesByStatus["maintenance"] != 2 {
		t.Errorf("unexpected device counts: %+v", st)
	}
	if st.InspectionsToday != 5 || len(st.InspectionsByDay) != 2 {
		t.Errorf("unexpected inspection counts: %+v", st)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
