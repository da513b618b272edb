package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/crucial707/meddevice/internal/models"
)

// TicketRepo persists incident tickets and their reply threads.
type TicketRepo struct {
	DB *sql.DB
}

// NewTicketRepo returns a new TicketRepo.
func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{DB: db}
}

const ticketSelect = `
	SELECT t.id, t.device_id, t.title, t.description, t.status, t.priority, t.created_by, t.assigned_to,
	       t.resolved_at, t.created_at, COALESCE(d.name, ''), COALESCE(d.location, ''),
	       COALESCE(cu.full_name, ''), COALESCE(au.full_name, '')
	FROM incident_tickets t
	LEFT JOIN devices d ON d.id = t.device_id
	LEFT JOIN users cu ON cu.id = t.created_by
	LEFT JOIN users au ON au.id = t.assigned_to`

func scanTicket(row rowScanner) (*models.Ticket, error) {
	t := &models.Ticket{}
	err := row.Scan(&t.ID, &t.DeviceID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.CreatedBy,
		&t.AssignedTo, &t.ResolvedAt, &t.CreatedAt, &t.DeviceName, &t.DeviceLocation, &t.CreatedByName, &t.AssignedToName)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns tickets matching f, newest first.
func (r *TicketRepo) List(ctx context.Context, f models.TicketFilter) ([]models.Ticket, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("t.status = $%d", f.Status)
	}
	if f.AssignedTo > 0 {
		add("t.assigned_to = $%d", f.AssignedTo)
	}
	if f.DeviceID != "" {
		add("t.device_id = $%d", f.DeviceID)
	}
	if f.DepartmentID > 0 {
		add("d.department_id = $%d", f.DepartmentID)
	}
	q := ticketSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY t.created_at DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// GetByID returns nil, nil when the ticket does not exist.
func (r *TicketRepo) GetByID(ctx context.Context, id int) (*models.Ticket, error) {
	t, err := scanTicket(r.DB.QueryRowContext(ctx, ticketSelect+" WHERE t.id = $1", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create opens a ticket and returns its id.
func (r *TicketRepo) Create(ctx context.Context, in models.TicketInput, createdBy int) (int, error) {
	var id int
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO incident_tickets (device_id, title, description, priority, created_by, assigned_to)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		in.DeviceID, in.Title, in.Description, withDefault(in.Priority, "medium"), createdBy, nullableInt(in.AssignedTo),
	).Scan(&id)
	return id, err
}

// Update overwrites the ticket. resolved_at is stamped the first time the ticket
// reaches resolved or closed and kept afterwards.
func (r *TicketRepo) Update(ctx context.Context, id int, in models.TicketInput) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE incident_tickets
		SET title = $1, description = $2, status = $3, priority = $4, assigned_to = $5,
			resolved_at = CASE
				WHEN $3 IN ('resolved', 'closed') AND resolved_at IS NULL THEN now()
				ELSE resolved_at
			END
		WHERE id = $6`,
		in.Title, in.Description, withDefault(in.Status, models.TicketOpen), withDefault(in.Priority, "medium"),
		nullableInt(in.AssignedTo), id,
	)
	if err != nil {
		return err
	}
	return checkAffected(res.RowsAffected())
}

// Claim assigns the ticket to userID and moves it to in_progress.
func (r *TicketRepo) Claim(ctx context.Context, id, userID int) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE incident_tickets SET assigned_to = $1, status = 'in_progress' WHERE id = $2`, userID, id)
	if err != nil {
		return err
	}
	return checkAffected(res.RowsAffected())
}

func (r *TicketRepo) Delete(ctx context.Context, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM incident_tickets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res.RowsAffected())
}

// Replies returns the thread oldest first.
func (r *TicketRepo) Replies(ctx context.Context, ticketID int) ([]models.TicketReply, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT rp.id, rp.ticket_id, rp.user_id, rp.message, rp.created_at, COALESCE(u.full_name, ''), COALESCE(u.role, '')
		FROM ticket_replies rp
		LEFT JOIN users u ON u.id = rp.user_id
		WHERE rp.ticket_id = $1
		ORDER BY rp.created_at`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.TicketReply{}
	for rows.Next() {
		var rp models.TicketReply
		if err := rows.Scan(&rp.ID, &rp.TicketID, &rp.UserID, &rp.Message, &rp.CreatedAt, &rp.UserName, &rp.UserRole); err != nil {
			return nil, err
		}
		list = append(list, rp)
	}
	return list, rows.Err()
}

func (r *TicketRepo) AddReply(ctx context.Context, ticketID, userID int, message string) (*models.TicketReply, error) {
	rp := &models.TicketReply{}
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO ticket_replies (ticket_id, user_id, message) VALUES ($1, $2, $3)
		RETURNING id, ticket_id, user_id, message, created_at`,
		ticketID, userID, message,
	).Scan(&rp.ID, &rp.TicketID, &rp.UserID, &rp.Message, &rp.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rp, nil
}
