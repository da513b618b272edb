package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/crucial707/meddevice/internal/export"
	"github.com/crucial707/meddevice/internal/models"
	"github.com/crucial707/meddevice/internal/repo"
)

// StatsHandler serves the dashboard statistics and the Excel exports.
type StatsHandler struct {
	Stats       *repo.StatsRepo
	Devices     *repo.DeviceRepo
	Inspections *repo.InspectionRepo
	Location    *time.Location
	Logger      *slog.Logger
}

func (h *StatsHandler) loc() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

// Statistics returns dashboard figures. Query: department_id.
func (h *StatsHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.Stats.Statistics(r.Context(), intQuery(r, "department_id", 0), time.Now().In(h.loc()))
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ExportDevices downloads every device as an .xlsx workbook.
func (h *StatsHandler) ExportDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.Devices.List(r.Context(), models.DeviceFilter{})
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	f, err := export.Devices(devices, h.loc())
	if err != nil {
		h.logError("export devices", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	h.sendWorkbook(w, f, "thiet-bi")
}

// ExportInspections downloads inspections as an .xlsx workbook. Query: start_date, end_date.
func (h *StatsHandler) ExportInspections(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r, h.loc())
	if err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.Inspections.List(r.Context(), models.InspectionFilter{From: from, To: to})
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	f, err := export.Inspections(list, h.loc())
	if err != nil {
		h.logError("export inspections", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	h.sendWorkbook(w, f, "kiem-tra")
}

func (h *StatsHandler) sendWorkbook(w http.ResponseWriter, f *excelize.File, prefix string) {
	defer f.Close()
	name := fmt.Sprintf("%s-%s.xlsx", prefix, time.Now().In(h.loc()).Format("20060102"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := f.Write(w); err != nil {
		h.logError("write workbook", err)
	}
}

func (h *StatsHandler) logError(msg string, err error) {
	if h.Logger != nil {
		h.Logger.Error(msg, "error", err)
	}
}
