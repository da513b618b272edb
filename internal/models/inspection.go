package models

import "time"

// Inspection outcomes.
const (
	InspectionGood     = "good"
	InspectionIssue    = "issue"
	InspectionCritical = "critical"
)

// Inspection is an append-only record of a device check.
type Inspection struct {
	ID             int       `json:"id"`
	DeviceID       string    `json:"device_id"`
	InspectorName  string    `json:"inspector_name"`
	UserID         *int      `json:"user_id"`
	InspectedAt    time.Time `json:"inspected_at"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes"`
	Issues         string    `json:"issues"`
	Images         []string  `json:"images"`
	DeviceName     string    `json:"device_name,omitempty"`
	DeviceLocation string    `json:"device_location,omitempty"`
	CategoryName   string    `json:"category_name,omitempty"`
}

// InspectionFilter narrows inspection listings. From is inclusive, To exclusive; zero means open.
type InspectionFilter struct {
	DeviceID     string
	UserID       int
	DepartmentID int
	From         time.Time
	To           time.Time
	Limit        int
}

// InspectionInput is the body accepted when recording an inspection.
type InspectionInput struct {
	DeviceID      string   `json:"device_id" validate:"required"`
	InspectorName string   `json:"inspector_name" validate:"required,max=255"`
	Status        string   `json:"status" validate:"required,oneof=good issue critical"`
	Notes         string   `json:"notes" validate:"max=4000"`
	Issues        string   `json:"issues" validate:"max=4000"`
	Images        []string `json:"images" validate:"max=10,dive,upload_url"`
}
