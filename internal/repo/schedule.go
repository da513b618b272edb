package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/crucial707/meddevice/internal/models"
)

// ScheduleRepo persists scheduled chat reports.
type ScheduleRepo struct {
	DB *sql.DB
}

// NewScheduleRepo returns a new ScheduleRepo.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo {
	return &ScheduleRepo{DB: db}
}

const scheduleColumns = `id, name, schedule_type, schedule_time, schedule_day, chat_ids, report_type, active, last_run, created_at`

func scanSchedule(row rowScanner) (*models.ScheduledReport, error) {
	s := &models.ScheduledReport{}
	var day sql.NullInt64
	var lastRun sql.NullTime
	var chatIDs []byte
	if err := row.Scan(&s.ID, &s.Name, &s.ScheduleType, &s.ScheduleTime, &day, &chatIDs,
		&s.ReportType, &s.Active, &lastRun, &s.CreatedAt); err != nil {
		return nil, err
	}
	if day.Valid {
		d := int(day.Int64)
		s.ScheduleDay = &d
	}
	if lastRun.Valid {
		t := lastRun.Time
		s.LastRun = &t
	}
	s.ChatIDs = []string{}
	if len(chatIDs) > 0 {
		if err := json.Unmarshal(chatIDs, &s.ChatIDs); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (r *ScheduleRepo) query(ctx context.Context, query string, args ...any) ([]models.ScheduledReport, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.ScheduledReport{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// List returns every schedule, newest first.
func (r *ScheduleRepo) List(ctx context.Context) ([]models.ScheduledReport, error) {
	return r.query(ctx, `SELECT `+scheduleColumns+` FROM scheduled_reports ORDER BY created_at DESC`)
}

// ListActive returns the schedules the minute tick should consider.
func (r *ScheduleRepo) ListActive(ctx context.Context) ([]models.ScheduledReport, error) {
	return r.query(ctx, `SELECT `+scheduleColumns+` FROM scheduled_reports WHERE active = true ORDER BY id`)
}

// GetByID returns one schedule, or nil when it does not exist.
func (r *ScheduleRepo) GetByID(ctx context.Context, id int) (*models.ScheduledReport, error) {
	s, err := scanSchedule(r.DB.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM scheduled_reports WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts s and returns the stored row.
func (r *ScheduleRepo) Create(ctx context.Context, s models.ScheduledReport) (*models.ScheduledReport, error) {
	chatIDs, err := marshalChatIDs(s.ChatIDs)
	if err != nil {
		return nil, err
	}
	return scanSchedule(r.DB.QueryRowContext(ctx, `
		INSERT INTO scheduled_reports (name, schedule_type, schedule_time, schedule_day, chat_ids, report_type, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+scheduleColumns,
		s.Name, s.ScheduleType, s.ScheduleTime, nullableInt(s.ScheduleDay), chatIDs, s.ReportType, s.Active,
	))
}

// Update overwrites the editable fields. last_run is left untouched.
func (r *ScheduleRepo) Update(ctx context.Context, id int, s models.ScheduledReport) error {
	chatIDs, err := marshalChatIDs(s.ChatIDs)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE scheduled_reports
		SET name = $1, schedule_type = $2, schedule_time = $3, schedule_day = $4, chat_ids = $5, report_type = $6, active = $7
		WHERE id = $8`,
		s.Name, s.ScheduleType, s.ScheduleTime, nullableInt(s.ScheduleDay), chatIDs, s.ReportType, s.Active, id,
	)
	if err != nil {
		return err
	}
	return checkAffected(res.RowsAffected())
}

// Delete removes a schedule by id.
func (r *ScheduleRepo) Delete(ctx context.Context, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM scheduled_reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res.RowsAffected())
}

// MarkRun records that the schedule fired at t.
func (r *ScheduleRepo) MarkRun(ctx context.Context, id int, t time.Time) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE scheduled_reports SET last_run = $1 WHERE id = $2`, t, id)
	return err
}

func marshalChatIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
