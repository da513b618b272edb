package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/crucial707/meddevice/internal/models"
	"github.com/crucial707/meddevice/internal/repo"
	"github.com/crucial707/meddevice/internal/scheduler"
)

// ReportTester sends a schedule's report immediately.
type ReportTester interface {
	TestSend(ctx context.Context, id int) (*scheduler.TestResult, error)
}

// ScheduleHandler handles scheduled report CRUD and test sends.
type ScheduleHandler struct {
	Repo   *repo.ScheduleRepo
	Audit  *repo.AuditRepo
	Tester ReportTester
}

type scheduleInput struct {
	Name         string   `json:"name" validate:"required,max=255"`
	ScheduleType string   `json:"schedule_type" validate:"required,oneof=daily weekly monthly quarterly"`
	ScheduleTime string   `json:"schedule_time" validate:"required"`
	ScheduleDay  *int     `json:"schedule_day"`
	ChatIDs      []string `json:"chat_ids" validate:"dive,required"`
	ReportType   string   `json:"report_type" validate:"required,oneof=uninspected summary"`
	Active       *bool    `json:"active"`
}

// validateSchedule applies the struct rules plus the cadence-specific day ranges.
// A quarterly day above 30 is rejected because it could never fire in April.
func validateSchedule(in *scheduleInput) map[string]string {
	fields := validateStruct(in)
	if fields == nil {
		fields = map[string]string{}
	}
	if _, ok := fields["schedule_time"]; !ok {
		if t, err := time.Parse("15:04", in.ScheduleTime); err != nil || t.Format("15:04") != in.ScheduleTime {
			fields["schedule_time"] = "must be HH:MM"
		}
	}
	day := in.ScheduleDay
	switch in.ScheduleType {
	case models.ScheduleDaily:
		in.ScheduleDay = nil
	case models.ScheduleWeekly:
		if day == nil || *day < 0 || *day > 6 {
			fields["schedule_day"] = "must be 0-6 (0 = Sunday)"
		}
	case models.ScheduleMonthly:
		if day == nil || *day < 1 || *day > 31 {
			fields["schedule_day"] = "must be 1-31"
		}
	case models.ScheduleQuarterly:
		if day != nil && (*day < 1 || *day > 30) {
			fields["schedule_day"] = "must be 1-30"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func (in scheduleInput) model() models.ScheduledReport {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	chatIDs := in.ChatIDs
	if chatIDs == nil {
		chatIDs = []string{}
	}
	return models.ScheduledReport{
		Name:         in.Name,
		ScheduleType: in.ScheduleType,
		ScheduleTime: in.ScheduleTime,
		ScheduleDay:  in.ScheduleDay,
		ChatIDs:      chatIDs,
		ReportType:   in.ReportType,
		Active:       active,
	}
}

// ListSchedules returns all schedules.
func (h *ScheduleHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	list, err := h.Repo.List(r.Context())
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetSchedule returns one schedule by id.
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid schedule id", http.StatusBadRequest)
		return
	}
	s, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if s == nil {
		JSONError(w, "schedule not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// CreateSchedule creates a schedule.
// Body: {"name", "schedule_type", "schedule_time": "HH:MM", "schedule_day", "chat_ids", "report_type", "active"}.
func (h *ScheduleHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var in scheduleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if fields := validateSchedule(&in); fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}
	s, err := h.Repo.Create(r.Context(), in.model())
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	auditLog(r.Context(), h.Audit, "create", "schedule", strconv.Itoa(s.ID), s.Name)
	writeJSON(w, http.StatusCreated, s)
}

// UpdateSchedule overwrites a schedule; last_run is kept.
func (h *ScheduleHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid schedule id", http.StatusBadRequest)
		return
	}
	var in scheduleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if fields := validateSchedule(&in); fields != nil {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}
	if err := h.Repo.Update(r.Context(), id, in.model()); err != nil {
		writeRepoError(w, err, "schedule not found")
		return
	}
	auditLog(r.Context(), h.Audit, "update", "schedule", strconv.Itoa(id), in.Name)

	s, err := h.Repo.GetByID(r.Context(), id)
	if err != nil || s == nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// DeleteSchedule deletes a schedule.
func (h *ScheduleHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid schedule id", http.StatusBadRequest)
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeRepoError(w, err, "schedule not found")
		return
	}
	auditLog(r.Context(), h.Audit, "delete", "schedule", strconv.Itoa(id), "")
	w.WriteHeader(http.StatusNoContent)
}

// TestSchedule sends the schedule's report now without recording a run.
func (h *ScheduleHandler) TestSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "id")
	if err != nil {
		JSONError(w, "invalid schedule id", http.StatusBadRequest)
		return
	}
	res, err := h.Tester.TestSend(r.Context(), id)
	if errors.Is(err, scheduler.ErrScheduleNotFound) {
		JSONError(w, "schedule not found", http.StatusNotFound)
		return
	}
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    len(res.Failed) == 0,
		"report":     res.Report,
		"recipients": res.Recipients,
		"sent_to":    res.SentTo,
		"failed":     res.Failed,
	})
}
