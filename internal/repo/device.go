package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/crucial707/meddevice/internal/models"
)

// DeviceRepo persists devices. Reads include the category display fields and the
// time of the most recent inspection.
type DeviceRepo struct {
	DB *sql.DB
}

// NewDeviceRepo returns a new DeviceRepo.
func NewDeviceRepo(db *sql.DB) *DeviceRepo {
	return &DeviceRepo{DB: db}
}

const deviceSelect = `
	SELECT d.id, d.name, d.model, d.serial_number, d.manufacturer, d.location,
	       d.department_id, COALESCE(dp.name, ''), d.category_id, COALESCE(c.name, ''), COALESCE(c.color, ''),
	       d.purchase_date, d.warranty_expiry, d.status, d.require_auth, d.inspection_password,
	       d.inspection_frequency, d.notes, d.created_at, d.updated_at,
	       (SELECT MAX(i.inspected_at) FROM inspections i WHERE i.device_id = d.id)
	FROM devices d
	LEFT JOIN departments dp ON dp.id = d.department_id
	LEFT JOIN device_categories c ON c.id = d.category_id`

func scanDevice(row rowScanner) (*models.Device, error) {
	d := &models.Device{}
	err := row.Scan(&d.ID, &d.Name, &d.Model, &d.SerialNumber, &d.Manufacturer, &d.Location,
		&d.DepartmentID, &d.DepartmentName, &d.CategoryID, &d.CategoryName, &d.CategoryColor,
		&d.PurchaseDate, &d.WarrantyExpiry, &d.Status, &d.RequireAuth, &d.InspectionPassword,
		&d.InspectionFrequency, &d.Notes, &d.CreatedAt, &d.UpdatedAt, &d.LastInspectionAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DeviceRepo) query(ctx context.Context, query string, args ...any) ([]models.Device, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := []models.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

// List returns devices matching f, newest first.
func (r *DeviceRepo) List(ctx context.Context, f models.DeviceFilter) ([]models.Device, error) {
	var where []string
	var args []any
	if f.CategoryID > 0 {
		args = append(args, f.CategoryID)
		where = append(where, fmt.Sprintf("d.category_id = $%d", len(args)))
	}
	if f.DepartmentID > 0 {
		args = append(args, f.DepartmentID)
		where = append(where, fmt.Sprintf("d.department_id = $%d", len(args)))
	}
	q := deviceSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY d.created_at DESC"
	return r.query(ctx, q, args...)
}

// ListActiveWithLastInspection returns every active device with LastInspectionAt populated.
func (r *DeviceRepo) ListActiveWithLastInspection(ctx context.Context) ([]models.Device, error) {
	return r.query(ctx, deviceSelect+" WHERE d.status = 'active' ORDER BY d.name")
}

// GetByID returns nil, nil when the device does not exist.
func (r *DeviceRepo) GetByID(ctx context.Context, id string) (*models.Device, error) {
	d, err := scanDevice(r.DB.QueryRowContext(ctx, deviceSelect+" WHERE d.id = $1", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Create stores a new device under a fresh uuid and returns its id.
// passwordHash is stored as given.
func (r *DeviceRepo) Create(ctx context.Context, in models.DeviceInput, passwordHash string) (string, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO devices (id, name, model, serial_number, manufacturer, location, department_id, category_id,
			purchase_date, warranty_expiry, status, require_auth, inspection_password, inspection_frequency, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		id, in.Name, in.Model, in.SerialNumber, in.Manufacturer, in.Location,
		nullableInt(in.DepartmentID), nullableInt(in.CategoryID), in.PurchaseDate, in.WarrantyExpiry,
		withDefault(in.Status, models.DeviceActive), in.RequireAuth, passwordHash,
		withDefault(in.InspectionFrequency, models.FrequencyMonthly), in.Notes,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Update overwrites a device. An empty passwordHash keeps the stored password.
func (r *DeviceRepo) Update(ctx context.Context, id string, in models.DeviceInput, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE devices
		SET name = $1, model = $2, serial_number = $3, manufacturer = $4, location = $5,
			department_id = $6, category_id = $7, purchase_date = $8, warranty_expiry = $9,
			status = $10, require_auth = $11,
			inspection_password = COALESCE(NULLIF($12, ''), inspection_password),
			inspection_frequency = $13, notes = $14, updated_at = now()
		WHERE id = $15`,
		in.Name, in.Model, in.SerialNumber, in.Manufacturer, in.Location,
		nullableInt(in.DepartmentID), nullableInt(in.CategoryID), in.PurchaseDate, in.WarrantyExpiry,
		withDefault(in.Status, models.DeviceActive), in.RequireAuth, passwordHash,
		withDefault(in.InspectionFrequency, models.FrequencyMonthly), in.Notes, id,
	)
	if err != nil {
		return err
	}
	return checkAffected(res.RowsAffected())
}

// Delete removes the device and its inspections in one transaction.
func (r *DeviceRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM inspections WHERE device_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := checkAffected(res.RowsAffected()); err != nil {
		return err
	}
	return tx.Commit()
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
