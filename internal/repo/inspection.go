package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/crucial707/meddevice/internal/models"
)

// InspectionRepo persists inspection records. Records are never edited.
type InspectionRepo struct {
	DB *sql.DB
}

// NewInspectionRepo returns a new InspectionRepo.
func NewInspectionRepo(db *sql.DB) *InspectionRepo {
	return &InspectionRepo{DB: db}
}

const inspectionSelect = `
	SELECT i.id, i.device_id, i.inspector_name, i.user_id, i.inspected_at, i.status, i.notes, i.issues, i.images,
	       COALESCE(d.name, ''), COALESCE(d.location, ''), COALESCE(c.name, '')
	FROM inspections i
	LEFT JOIN devices d ON d.id = i.device_id
	LEFT JOIN device_categories c ON c.id = d.category_id`

func scanInspection(row rowScanner) (*models.Inspection, error) {
	in := &models.Inspection{}
	var images []byte
	if err := row.Scan(&in.ID, &in.DeviceID, &in.InspectorName, &in.UserID, &in.InspectedAt, &in.Status,
		&in.Notes, &in.Issues, &images, &in.DeviceName, &in.DeviceLocation, &in.CategoryName); err != nil {
		return nil, err
	}
	in.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &in.Images); err != nil {
			return nil, fmt.Errorf("inspection %d images: %w", in.ID, err)
		}
	}
	return in, nil
}

// List returns inspections matching f, newest first.
func (r *InspectionRepo) List(ctx context.Context, f models.InspectionFilter) ([]models.Inspection, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.DeviceID != "" {
		add("i.device_id = $%d", f.DeviceID)
	}
	if f.UserID > 0 {
		add("i.user_id = $%d", f.UserID)
	}
	if f.DepartmentID > 0 {
		add("d.department_id = $%d", f.DepartmentID)
	}
	if !f.From.IsZero() {
		add("i.inspected_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("i.inspected_at < $%d", f.To)
	}

	q := inspectionSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY i.inspected_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Inspection{}
	for rows.Next() {
		in, err := scanInspection(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *in)
	}
	return list, rows.Err()
}

// GetByID returns nil, nil when the inspection does not exist.
func (r *InspectionRepo) GetByID(ctx context.Context, id int) (*models.Inspection, error) {
	in, err := scanInspection(r.DB.QueryRowContext(ctx, inspectionSelect+" WHERE i.id = $1", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return in, nil
}

// Create records an inspection taken at `at` and returns its id.
func (r *InspectionRepo) Create(ctx context.Context, in models.InspectionInput, userID *int, at time.Time) (int, error) {
	images := in.Images
	if images == nil {
		images = []string{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return 0, err
	}
	var id int
	err = r.DB.QueryRowContext(ctx, `
		INSERT INTO inspections (device_id, inspector_name, user_id, inspected_at, status, notes, issues, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		in.DeviceID, in.InspectorName, nullableInt(userID), at, in.Status, in.Notes, in.Issues, raw,
	).Scan(&id)
	return id, err
}

// ImagesInUse returns the subset of urls still listed by some inspection.
func (r *InspectionRepo) ImagesInUse(ctx context.Context, urls []string) (map[string]bool, error) {
	inUse := map[string]bool{}
	if len(urls) == 0 {
		return inUse, nil
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT DISTINCT img FROM inspections, jsonb_array_elements_text(images) AS img
		WHERE img = ANY($1)`, pq.Array(urls))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		inUse[url] = true
	}
	return inUse, rows.Err()
}

// Delete removes an inspection by id.
func (r *InspectionRepo) Delete(ctx context.Context, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM inspections WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res.RowsAffected())
}
