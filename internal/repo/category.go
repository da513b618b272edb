package repo

import (
	"context"
	"database/sql"

	"github.com/crucial707/meddevice/internal/models"
)

// CategoryRepo persists device categories.
type CategoryRepo struct {
	DB *sql.DB
}

// NewCategoryRepo returns a new CategoryRepo.
func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{DB: db}
}

func (r *CategoryRepo) List(ctx context.Context) ([]models.Category, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT c.id, c.name, c.description, c.color, c.created_at,
		       (SELECT COUNT(*) FROM devices d WHERE d.category_id = c.id)
		FROM device_categories c
		ORDER BY c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.CreatedAt, &c.DeviceCount); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *CategoryRepo) Create(ctx context.Context, name, description, color string) (*models.Category, error) {
	c := &models.Category{}
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO device_categories (name, description, color) VALUES ($1, $2, $3)
		RETURNING id, name, description, color, created_at`,
		name, description, withDefault(color, "#0ea5e9"),
	).Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CategoryRepo) Update(ctx context.Context, id int, name, description, color string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE device_categories SET name = $1, description = $2, color = $3 WHERE id = $4`,
		name, description, withDefault(color, "#0ea5e9"), id)
	if err != nil {
		return err
	}
	return checkAffected(res.RowsAffected())
}

func (r *CategoryRepo) Delete(ctx context.Context, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM device_categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res.RowsAffected())
}
