package repo

import (
	"context"
	"database/sql"

	"github.com/crucial707/meddevice/internal/models"
)

// DepartmentRepo persists hospital departments.
type DepartmentRepo struct {
	DB *sql.DB
}

// NewDepartmentRepo returns a new DepartmentRepo.
func NewDepartmentRepo(db *sql.DB) *DepartmentRepo {
	return &DepartmentRepo{DB: db}
}

// List returns departments with their user and device counts.
func (r *DepartmentRepo) List(ctx context.Context) ([]models.Department, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT dp.id, dp.name, dp.description, dp.created_at,
		       (SELECT COUNT(*) FROM users u WHERE u.department_id = dp.id),
		       (SELECT COUNT(*) FROM devices d WHERE d.department_id = dp.id)
		FROM departments dp
		ORDER BY dp.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Department{}
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.CreatedAt, &d.UserCount, &d.DeviceCount); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func (r *DepartmentRepo) Create(ctx context.Context, name, description string) (*models.Department, error) {
	d := &models.Department{}
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO departments (name, description) VALUES ($1, $2) RETURNING id, name, description, created_at`,
		name, description,
	).Scan(&d.ID, &d.Name, &d.Description, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DepartmentRepo) Update(ctx context.Context, id int, name, description string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE departments SET name = $1, description = $2 WHERE id = $3`, name, description, id)
	if err != nil {
		return err
	}
	return checkAffected(res.RowsAffected())
}

// Delete removes the department; users and devices keep existing with no department.
func (r *DepartmentRepo) Delete(ctx context.Context, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res.RowsAffected())
}
