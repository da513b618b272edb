package models

import "time"

const (
	RoleAdmin      = "admin"
	RoleInspector  = "inspector"
	RoleTechnician = "technician"
	RoleViewer     = "viewer"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleInspector, RoleTechnician, RoleViewer:
		return true
	}
	return false
}

type User struct {
	ID             int       `json:"id"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
	Phone          string    `json:"phone"`
	Active         bool      `json:"active"`
	DepartmentID   *int      `json:"department_id"`
	DepartmentName string    `json:"department_name,omitempty"`
	ZaloUserID     string    `json:"zalo_user_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserInput is the admin-editable part of a user. Password is optional on update.
type UserInput struct {
	Username     string `json:"username" validate:"required,min=3,max=64"`
	Password     string `json:"password" validate:"omitempty,min=6,max=72"`
	FullName     string `json:"full_name" validate:"max=255"`
	Role         string `json:"role" validate:"required,oneof=admin inspector technician viewer"`
	Phone        string `json:"phone" validate:"max=32"`
	Active       *bool  `json:"active"`
	DepartmentID *int   `json:"department_id"`
	ZaloUserID   string `json:"zalo_user_id" validate:"max=128"`
}
