package handlers

import (
	"net/http"
	"strconv"

	"github.com/crucial707/meddevice/internal/middleware"
	"github.com/crucial707/meddevice/internal/models"
	"github.com/crucial707/meddevice/internal/repo"
)

// TicketHandler serves incident tickets and their reply threads.
type TicketHandler struct {
	Repo  *repo.TicketRepo
	Audit *repo.AuditRepo
}

// ListTickets returns tickets. Query: status, assigned_to, device_id, department_id.
func (h *TicketHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.Repo.List(r.Context(), models.TicketFilter{
		Status:       q.Get("status"),
		AssignedTo:   intQuery(r, "assigned_to", 0),
		DeviceID:     q.Get("device_id"),
		DepartmentID: intQuery(r, "department_id", 0),
	})
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid ticket id", http.StatusBadRequest)
		return
	}
	t, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if t == nil {
		JSONError(w, "ticket not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTicket opens a ticket reported by the caller.
func (h *TicketHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var in models.TicketInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if fields := validateStruct(in); fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}
	id, err := h.Repo.Create(r.Context(), in, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	auditLog(r.Context(), h.Audit, "create", "ticket", strconv.Itoa(id), in.Title)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
}

// UpdateTicket overwrites a ticket. resolved_at is stamped once on resolved or closed.
func (h *TicketHandler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid ticket id", http.StatusBadRequest)
		return
	}
	var in models.TicketInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if fields := validateStruct(in); fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}
	if err := h.Repo.Update(r.Context(), id, in); err != nil {
		writeRepoError(w, err, "ticket not found")
		return
	}
	auditLog(r.Context(), h.Audit, "update", "ticket", strconv.Itoa(id), in.Status)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *TicketHandler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid ticket id", http.StatusBadRequest)
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeRepoError(w, err, "ticket not found")
		return
	}
	auditLog(r.Context(), h.Audit, "delete", "ticket", strconv.Itoa(id), "")
	w.WriteHeader(http.StatusNoContent)
}

// ClaimTicket assigns the ticket to the caller and marks it in progress.
func (h *TicketHandler) ClaimTicket(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid ticket id", http.StatusBadRequest)
		return
	}
	userID := middleware.UserIDFromContext(r.Context())
	if userID == 0 {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.Repo.Claim(r.Context(), id, userID); err != nil {
		writeRepoError(w, err, "ticket not found")
		return
	}
	auditLog(r.Context(), h.Audit, "update", "ticket", strconv.Itoa(id), "claimed")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *TicketHandler) ListReplies(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid ticket id", http.StatusBadRequest)
		return
	}
	list, err := h.Repo.Replies(r.Context(), id)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// AddReply appends a message from the caller. Body: {"message": "..."}.
func (h *TicketHandler) AddReply(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid ticket id", http.StatusBadRequest)
		return
	}
	var input struct {
		Message string `json:"message" validate:"required,max=4000"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if fields := validateStruct(input); fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}
	t, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if t == nil {
		JSONError(w, "ticket not found", http.StatusNotFound)
		return
	}
	rp, err := h.Repo.AddReply(r.Context(), id, middleware.UserIDFromContext(r.Context()), input.Message)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, rp)
}
