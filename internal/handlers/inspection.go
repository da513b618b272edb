package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/crucial707/meddevice/internal/middleware"
	"github.com/crucial707/meddevice/internal/models"
	"github.com/crucial707/meddevice/internal/repo"
)

// InspectionNotifier tells staff about a new inspection.
type InspectionNotifier interface {
	NotifyInspection(ctx context.Context, in models.Inspection, d models.Device, baseURL string) int
}

const notifyTimeout = 2 * time.Minute

// InspectionHandler records and lists inspections.
type InspectionHandler struct {
	Repo     *repo.InspectionRepo
	Devices  *repo.DeviceRepo
	Audit    *repo.AuditRepo
	Settings *repo.SysConfigRepo
	// Notifier may be nil when the chat bot is not wired.
	Notifier      InspectionNotifier
	PublicBaseURL string
	UploadsDir    string
	Location      *time.Location
	Logger        *slog.Logger
}

func (h *InspectionHandler) loc() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

// parseDateRange reads start_date and end_date (YYYY-MM-DD, both inclusive) in the reporting zone.
func parseDateRange(r *http.Request, loc *time.Location) (from, to time.Time, err error) {
	if s := r.URL.Query().Get("start_date"); s != "" {
		if from, err = time.ParseInLocation(time.DateOnly, s, loc); err != nil {
			return from, to, errors.New("start_date must be YYYY-MM-DD")
		}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		var end time.Time
		if end, err = time.ParseInLocation(time.DateOnly, s, loc); err != nil {
			return from, to, errors.New("end_date must be YYYY-MM-DD")
		}
		to = end.AddDate(0, 0, 1)
	}
	return from, to, nil
}

// ListInspections returns inspections, newest first.
// Query: device_id, user_id, department_id, start_date, end_date.
func (h *InspectionHandler) ListInspections(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r, h.loc())
	if err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.Repo.List(r.Context(), models.InspectionFilter{
		DeviceID:     r.URL.Query().Get("device_id"),
		UserID:       intQuery(r, "user_id", 0),
		DepartmentID: intQuery(r, "department_id", 0),
		From:         from,
		To:           to,
	})
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateInspection records an inspection stamped with the current time and notifies staff
// in the background.
func (h *InspectionHandler) CreateInspection(w http.ResponseWriter, r *http.Request) {
	var in models.InspectionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if fields := validateStruct(in); fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}
	d, err := h.Devices.GetByID(r.Context(), in.DeviceID)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if d == nil {
		JSONError(w, "device not found", http.StatusNotFound)
		return
	}

	var userID *int
	if id := middleware.UserIDFromContext(r.Context()); id > 0 {
		userID = &id
	}
	at := time.Now().In(h.loc())
	id, err := h.Repo.Create(r.Context(), in, userID, at)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	auditLog(r.Context(), h.Audit, "create", "inspection", strconv.Itoa(id), d.Name)

	if h.Notifier != nil {
		rec := models.Inspection{
			ID: id, DeviceID: in.DeviceID, InspectorName: in.InspectorName, UserID: userID,
			InspectedAt: at, Status: in.Status, Notes: in.Notes, Issues: in.Issues, Images: in.Images,
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), notifyTimeout)
		baseURL := publicBaseURL(ctx, h.Settings, h.PublicBaseURL)
		go func() {
			defer cancel()
			h.Notifier.NotifyInspection(ctx, rec, *d, baseURL)
		}()
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
}

// DeleteInspection removes an inspection and the images it references.
func (h *InspectionHandler) DeleteInspection(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid inspection id", http.StatusBadRequest)
		return
	}
	in, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if in == nil {
		JSONError(w, "inspection not found", http.StatusNotFound)
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeRepoError(w, err, "inspection not found")
		return
	}
	h.removeImages(r.Context(), in.Images)
	auditLog(r.Context(), h.Audit, "delete", "inspection", strconv.Itoa(id), in.DeviceName)
	w.WriteHeader(http.StatusNoContent)
}

// removeImages deletes the uploaded files behind images. Anything that is not an upload URL
// and any file another inspection still lists are left alone.
func (h *InspectionHandler) removeImages(ctx context.Context, images []string) {
	if h.UploadsDir == "" {
		return
	}
	var uploads []string
	for _, img := range images {
		if uploadURL.MatchString(img) {
			uploads = append(uploads, img)
		}
	}
	if len(uploads) == 0 {
		return
	}
	inUse, err := h.Repo.ImagesInUse(ctx, uploads)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("check inspection images", "error", err)
		}
		return
	}
	for _, img := range uploads {
		if inUse[img] {
			continue
		}
		name := path.Base(img)
		err := os.Remove(filepath.Join(h.UploadsDir, name))
		if err != nil && !errors.Is(err, os.ErrNotExist) && h.Logger != nil {
			h.Logger.Warn("remove inspection image", "file", name, "error", err)
		}
	}
}
