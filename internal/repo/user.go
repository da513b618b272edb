package repo

import (
	"context"
	"database/sql"

	"github.com/crucial707/meddevice/internal/models"
)

// UserRepo persists staff accounts.
type UserRepo struct {
	DB *sql.DB
}

// NewUserRepo returns a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

const userSelect = `
	SELECT u.id, u.username, u.password_hash, u.full_name, u.role, u.phone, u.active,
	       u.department_id, COALESCE(dp.name, ''), COALESCE(u.zalo_user_id, ''), u.created_at
	FROM users u
	LEFT JOIN departments dp ON dp.id = u.department_id`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role, &u.Phone, &u.Active,
		&u.DepartmentID, &u.DepartmentName, &u.ZaloUserID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, userSelect+" WHERE "+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByID returns nil, nil when no such user exists.
func (r *UserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	return r.getOne(ctx, "u.id = $1", id)
}

// GetByUsername returns nil, nil when no such user exists.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "u.username = $1", username)
}

// List returns all users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.DB.QueryContext(ctx, userSelect+" ORDER BY u.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Create inserts a user and returns its id. Unique violations surface unchanged.
func (r *UserRepo) Create(ctx context.Context, in models.UserInput, passwordHash string) (int, error) {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	var id int
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, full_name, role, phone, active, department_id, zalo_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		RETURNING id`,
		in.Username, passwordHash, in.FullName, in.Role, in.Phone, active, nullableInt(in.DepartmentID), in.ZaloUserID,
	).Scan(&id)
	return id, err
}

// Update overwrites the profile. An empty passwordHash keeps the current password;
// a nil Active keeps the current flag.
func (r *UserRepo) Update(ctx context.Context, id int, in models.UserInput, passwordHash string) error {
	var active any
	if in.Active != nil {
		active = *in.Active
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET username = $1, full_name = $2, role = $3, phone = $4,
			active = COALESCE($5, active), department_id = $6, zalo_user_id = NULLIF($7, ''),
			password_hash = COALESCE(NULLIF($8, ''), password_hash)
		WHERE id = $9`,
		in.Username, in.FullName, in.Role, in.Phone, active, nullableInt(in.DepartmentID), in.ZaloUserID, passwordHash, id,
	)
	if err != nil {
		return err
	}
	return checkAffected(res.RowsAffected())
}

// Delete removes a user by id.
func (r *UserRepo) Delete(ctx context.Context, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res.RowsAffected())
}

// CountAdmins is used by first-run setup.
func (r *UserRepo) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = 'admin'`).Scan(&n)
	return n, err
}

// NotificationChatIDs returns the chat ids of active admins plus the active inspectors and
// technicians of departmentID. A nil departmentID selects admins only.
func (r *UserRepo) NotificationChatIDs(ctx context.Context, departmentID *int) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT DISTINCT zalo_user_id FROM users
		WHERE active = true AND zalo_user_id IS NOT NULL AND zalo_user_id <> ''
		  AND (role = 'admin' OR (role IN ('inspector', 'technician') AND department_id = $1))`,
		nullableInt(departmentID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
