package handlers

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/crypto/bcrypt"

	"github.com/crucial707/meddevice/internal/models"
	"github.com/crucial707/meddevice/internal/repo"
	"github.com/crucial707/meddevice/internal/scheduler"
)

// DeviceHandler serves device CRUD, due lists, QR codes and the scanner password check.
type DeviceHandler struct {
	Repo     *repo.DeviceRepo
	Audit    *repo.AuditRepo
	Settings *repo.SysConfigRepo
	// PublicBaseURL is used for QR links when domain_url is not configured.
	PublicBaseURL string
	Location      *time.Location
}

func (h *DeviceHandler) now() time.Time {
	if h.Location == nil {
		return time.Now()
	}
	return time.Now().In(h.Location)
}

// ListDevices returns devices. Query: category_id, department_id.
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	f := models.DeviceFilter{
		CategoryID:   intQuery(r, "category_id", 0),
		DepartmentID: intQuery(r, "department_id", 0),
	}
	devices, err := h.Repo.List(r.Context(), f)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// GetDevice returns one device by id.
func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := h.Repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if d == nil {
		JSONError(w, "device not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func hashInspectionPassword(pw string) (string, error) {
	if pw == "" {
		return "", nil
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// CreateDevice creates a device. A device that requires auth must be given a password.
func (h *DeviceHandler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var in models.DeviceInput
	if !decodeJSON(w, r, &in) {
		return
	}
	fields := validateStruct(in)
	if in.RequireAuth && in.InspectionPassword == "" {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["inspection_password"] = "required when require_auth is set"
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	hash, err := hashInspectionPassword(in.InspectionPassword)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	id, err := h.Repo.Create(r.Context(), in, hash)
	if err != nil {
		writeRepoError(w, err, "device not found")
		return
	}
	auditLog(r.Context(), h.Audit, "create", "device", id, in.Name)

	d, err := h.Repo.GetByID(r.Context(), id)
	if err != nil || d == nil {
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// UpdateDevice overwrites a device. An empty inspection_password keeps the current one.
func (h *DeviceHandler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var in models.DeviceInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if fields := validateStruct(in); fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}
	hash, err := hashInspectionPassword(in.InspectionPassword)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if err := h.Repo.Update(r.Context(), id, in, hash); err != nil {
		writeRepoError(w, err, "device not found")
		return
	}
	auditLog(r.Context(), h.Audit, "update", "device", id, in.Name)

	d, err := h.Repo.GetByID(r.Context(), id)
	if err != nil || d == nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteDevice removes a device together with its inspections.
func (h *DeviceHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeRepoError(w, err, "device not found")
		return
	}
	auditLog(r.Context(), h.Audit, "delete", "device", id, "")
	w.WriteHeader(http.StatusNoContent)
}

type dueDevice struct {
	models.Device
	NextDue *time.Time `json:"next_due"`
}

// DueDevices lists active devices whose inspection is due today.
func (h *DeviceHandler) DueDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.Repo.ListActiveWithLastInspection(r.Context())
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	at := h.now()
	due := scheduler.DueDevices(devices, at)
	out := make([]dueDevice, 0, len(due))
	for _, d := range due {
		out = append(out, dueDevice{Device: d, NextDue: scheduler.NextDue(d, at.Location())})
	}
	writeJSON(w, http.StatusOK, out)
}

// QRCode returns a PNG data URL pointing the scanner page at the device.
func (h *DeviceHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	d, err := h.Repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if d == nil {
		JSONError(w, "device not found", http.StatusNotFound)
		return
	}

	link := publicBaseURL(r.Context(), h.Settings, h.PublicBaseURL) + "/inspect.html?device=" + url.QueryEscape(d.ID)
	png, err := qrcode.Encode(link, qrcode.Medium, 300)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"device": d,
		"qrcode": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		"url":    link,
	})
}

// VerifyPassword checks the inspection password of a device. Body: {"password": "..."}.
func (h *DeviceHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	d, err := h.Repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if d == nil {
		JSONError(w, "device not found", http.StatusNotFound)
		return
	}
	if d.InspectionPassword != "" &&
		bcrypt.CompareHashAndPassword([]byte(d.InspectionPassword), []byte(input.Password)) != nil {
		JSONError(w, "wrong password", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
