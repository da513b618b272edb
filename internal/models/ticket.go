package models

import "time"

// Ticket statuses.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

// Ticket is an incident reported against a device.
type Ticket struct {
	ID             int        `json:"id"`
	DeviceID       string     `json:"device_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	CreatedBy      *int       `json:"created_by"`
	AssignedTo     *int       `json:"assigned_to"`
	ResolvedAt     *time.Time `json:"resolved_at"`
	CreatedAt      time.Time  `json:"created_at"`
	DeviceName     string     `json:"device_name,omitempty"`
	DeviceLocation string     `json:"device_location,omitempty"`
	CreatedByName  string     `json:"created_by_name,omitempty"`
	AssignedToName string     `json:"assigned_to_name,omitempty"`
}

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	Status       string
	AssignedTo   int
	DeviceID     string
	DepartmentID int
}

// TicketReply is one message in a ticket thread.
type TicketReply struct {
	ID        int       `json:"id"`
	TicketID  int       `json:"ticket_id"`
	UserID    int       `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UserName  string    `json:"user_name,omitempty"`
	UserRole  string    `json:"user_role,omitempty"`
}

// TicketInput is accepted on create and update.
type TicketInput struct {
	DeviceID    string `json:"device_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=4000"`
	Status      string `json:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	AssignedTo  *int   `json:"assigned_to"`
}
