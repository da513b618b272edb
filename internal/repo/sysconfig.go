package repo

import (
	"context"
	"database/sql"
)

// Well-known system_config keys.
const (
	ConfigDomainURL = "domain_url"
	ConfigSubdomain = "tunnel_subdomain"
	ConfigZaloToken = "zalo_bot_token"
	ConfigHospital  = "hospital_name"
)

// SysConfigRepo is a key/value store for runtime settings.
type SysConfigRepo struct {
	DB *sql.DB
}

// NewSysConfigRepo returns a new SysConfigRepo.
func NewSysConfigRepo(db *sql.DB) *SysConfigRepo {
	return &SysConfigRepo{DB: db}
}

// Get returns "" when the key is unset.
func (r *SysConfigRepo) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := r.DB.QueryRowContext(ctx, `SELECT value FROM system_config WHERE key = $1`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

// All returns every stored setting.
func (r *SysConfigRepo) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT key, value FROM system_config ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Set upserts one setting.
func (r *SysConfigRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO system_config (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return err
}

// SetMany upserts all entries in one transaction.
func (r *SysConfigRepo) SetMany(ctx context.Context, entries map[string]string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for k, v := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO system_config (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Delete removes a setting. Missing keys are not an error.
func (r *SysConfigRepo) Delete(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM system_config WHERE key = $1`, key)
	return err
}
