package handlers

import (
	"bytes"
	"context"
	"database/sql/driver"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crucial707/meddevice/internal/middleware"
)

var deviceCols = []string{"id", "name", "model", "serial_number", "manufacturer", "location",
	"department_id", "department_name", "category_id", "category_name", "category_color", "purchase_date", "warranty_expiry",
	"status", "require_auth", "inspection_password", "inspection_frequency", "notes", "created_at", "updated_at", "last_inspection_at"}

var userCols = []string{"id", "username", "password_hash", "full_name", "role", "phone", "active",
	"department_id", "department_name", "zalo_user_id", "created_at"}

var scheduleCols = []string{"id", "name", "schedule_type", "schedule_time", "schedule_day", "chat_ids", "report_type", "active", "last_run", "created_at"}

var inspectionCols = []string{"id", "device_id", "inspector_name", "user_id", "inspected_at", "status", "notes", "issues", "images",
	"device_name", "device_location", "category_name"}

// requestWithChiURLParams returns a request with chi route context and URL params set.
func requestWithChiURLParams(method, path string, body []byte, params map[string]string) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	return r
}

// asUser attaches JWT claims for userID with role.
func asUser(r *http.Request, userID int, role string) *http.Request {
	return r.WithContext(middleware.WithClaims(r.Context(), &middleware.Claims{UserID: userID, Role: role}))
}

// deviceRow is a device row for sqlmock with the given id, name and stored password hash.
func deviceRow(id, name, passwordHash string) []driver.Value {
	now := time.Now()
	return []driver.Value{id, name, "LOGIQ", "SN1", "GE", "Phòng 101", 2, "Nội", nil, "", "", "", "",
		"active", passwordHash != "", passwordHash, "monthly", "", now, now, nil}
}
