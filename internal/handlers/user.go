package handlers

import (
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/crucial707/meddevice/internal/middleware"
	"github.com/crucial707/meddevice/internal/models"
	"github.com/crucial707/meddevice/internal/repo"
)

// ==========================
// UserHandler
// ==========================
type UserHandler struct {
	Repo      *repo.UserRepo
	AuditRepo *repo.AuditRepo
}

func hashPassword(pw string) (string, error) {
	if pw == "" {
		return "", nil
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// ==========================
// Create User (password required)
// ==========================
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in models.UserInput
	if !decodeJSON(w, r, &in) {
		return
	}
	fields := validateStruct(in)
	if in.Password == "" {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["password"] = "required"
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	id, err := h.Repo.Create(r.Context(), in, hash)
	if err != nil {
		if repo.IsUniqueViolation(err) {
			JSONValidationError(w, "validation failed", map[string]string{"username": "already taken"}, http.StatusConflict)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	auditLog(r.Context(), h.AuditRepo, "create", "user", strconv.Itoa(id), in.Username)

	user, err := h.Repo.GetByID(r.Context(), id)
	if err != nil || user == nil {
		writeJSON(w, http.StatusCreated, map[string]int{"id": id})
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// ==========================
// List Users
// ==========================
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Repo.List(r.Context())
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ==========================
// Get User
// ==========================
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid user id", http.StatusBadRequest)
		return
	}
	user, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if user == nil {
		JSONError(w, "user not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ==========================
// Update User (empty password keeps the current one)
// ==========================
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid user id", http.StatusBadRequest)
		return
	}
	var in models.UserInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if fields := validateStruct(in); fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}
	if id == middleware.UserIDFromContext(r.Context()) && in.Active != nil && !*in.Active {
		JSONError(w, "cannot lock your own account", http.StatusBadRequest)
		return
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if err := h.Repo.Update(r.Context(), id, in, hash); err != nil {
		writeRepoError(w, err, "user not found")
		return
	}
	auditLog(r.Context(), h.AuditRepo, "update", "user", strconv.Itoa(id), in.Username)

	user, err := h.Repo.GetByID(r.Context(), id)
	if err != nil || user == nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ==========================
// Delete User
// ==========================
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if id == middleware.UserIDFromContext(r.Context()) {
		JSONError(w, "cannot delete your own account", http.StatusBadRequest)
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeRepoError(w, err, "user not found")
		return
	}
	auditLog(r.Context(), h.AuditRepo, "delete", "user", strconv.Itoa(id), "")
	w.WriteHeader(http.StatusNoContent)
}
