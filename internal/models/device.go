package models

import "time"

// Device statuses.
const (
	DeviceActive      = "active"
	DeviceMaintenance = "maintenance"
	DeviceInactive    = "inactive"
)

// Inspection frequencies. Anything else is treated as monthly when computing due dates.
const (
	FrequencyDaily     = "daily"
	FrequencyWeekly    = "weekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
	FrequencyIrregular = "irregular"
)

// Device is a tracked piece of medical equipment.
type Device struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Model               string     `json:"model"`
	SerialNumber        string     `json:"serial_number"`
	Manufacturer        string     `json:"manufacturer"`
	Location            string     `json:"location"`
	DepartmentID        *int       `json:"department_id"`
	DepartmentName      string     `json:"department_name,omitempty"`
	CategoryID          *int       `json:"category_id"`
	CategoryName        string     `json:"category_name,omitempty"`
	CategoryColor       string     `json:"category_color,omitempty"`
	PurchaseDate        string     `json:"purchase_date"`
	WarrantyExpiry      string     `json:"warranty_expiry"`
	Status              string     `json:"status"`
	RequireAuth         bool       `json:"require_auth"`
	InspectionPassword  string     `json:"-"`
	InspectionFrequency string     `json:"inspection_frequency"`
	Notes               string     `json:"notes"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	LastInspectionAt    *time.Time `json:"last_inspection_at,omitempty"`
}

// DeviceInput is the writable subset of a device.
type DeviceInput struct {
	Name                string `json:"name" validate:"required,min=2,max=255"`
	Model               string `json:"model" validate:"max=255"`
	SerialNumber        string `json:"serial_number" validate:"max=255"`
	Manufacturer        string `json:"manufacturer" validate:"max=255"`
	Location            string `json:"location" validate:"max=255"`
	DepartmentID        *int   `json:"department_id"`
	CategoryID          *int   `json:"category_id"`
	PurchaseDate        string `json:"purchase_date"`
	WarrantyExpiry      string `json:"warranty_expiry"`
	Status              string `json:"status" validate:"omitempty,oneof=active maintenance inactive"`
	RequireAuth         bool   `json:"require_auth"`
	InspectionPassword  string `json:"inspection_password"`
	InspectionFrequency string `json:"inspection_frequency" validate:"omitempty,oneof=daily weekly monthly quarterly yearly irregular"`
	Notes               string `json:"notes" validate:"max=2000"`
}

// DeviceFilter narrows device listings. Zero values mean "any".
type DeviceFilter struct {
	CategoryID   int
	DepartmentID int
}
