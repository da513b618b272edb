package handlers

import (
	"net/http"
	"strconv"

	"github.com/crucial707/meddevice/internal/repo"
)

type departmentInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=1000"`
}

// DepartmentHandler serves department CRUD.
type DepartmentHandler struct {
	Repo  *repo.DepartmentRepo
	Audit *repo.AuditRepo
}

func (h *DepartmentHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	list, err := h.Repo.List(r.Context())
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *DepartmentHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var in departmentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if fields := validateStruct(in); fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}
	d, err := h.Repo.Create(r.Context(), in.Name, in.Description)
	if err != nil {
		writeRepoError(w, err, "department not found")
		return
	}
	auditLog(r.Context(), h.Audit, "create", "department", strconv.Itoa(d.ID), d.Name)
	writeJSON(w, http.StatusCreated, d)
}

func (h *DepartmentHandler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid department id", http.StatusBadRequest)
		return
	}
	var in departmentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if fields := validateStruct(in); fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}
	if err := h.Repo.Update(r.Context(), id, in.Name, in.Description); err != nil {
		writeRepoError(w, err, "department not found")
		return
	}
	auditLog(r.Context(), h.Audit, "update", "department", strconv.Itoa(id), in.Name)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteDepartment removes a department; its users and devices are detached, not deleted.
func (h *DepartmentHandler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid department id", http.StatusBadRequest)
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeRepoError(w, err, "department not found")
		return
	}
	auditLog(r.Context(), h.Audit, "delete", "department", strconv.Itoa(id), "")
	w.WriteHeader(http.StatusNoContent)
}

type categoryInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=1000"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
}

// CategoryHandler serves device category CRUD.
type CategoryHandler struct {
	Repo  *repo.CategoryRepo
	Audit *repo.AuditRepo
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.Repo.List(r.Context())
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in categoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if fields := validateStruct(in); fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}
	c, err := h.Repo.Create(r.Context(), in.Name, in.Description, in.Color)
	if err != nil {
		writeRepoError(w, err, "category not found")
		return
	}
	auditLog(r.Context(), h.Audit, "create", "category", strconv.Itoa(c.ID), c.Name)
	writeJSON(w, http.StatusCreated, c)
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid category id", http.StatusBadRequest)
		return
	}
	var in categoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if fields := validateStruct(in); fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}
	if err := h.Repo.Update(r.Context(), id, in.Name, in.Description, in.Color); err != nil {
		writeRepoError(w, err, "category not found")
		return
	}
	auditLog(r.Context(), h.Audit, "update", "category", strconv.Itoa(id), in.Name)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteCategory removes a category; devices in it become uncategorized.
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid category id", http.StatusBadRequest)
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeRepoError(w, err, "category not found")
		return
	}
	auditLog(r.Context(), h.Audit, "delete", "category", strconv.Itoa(id), "")
	w.WriteHeader(http.StatusNoContent)
}
