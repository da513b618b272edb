package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/crucial707/meddevice/internal/config"
	"github.com/crucial707/meddevice/internal/middleware"
)

const testSecret = "test-secret-for-integration"

var userCols = []string{"id", "username", "password_hash", "full_name", "role", "phone", "active",
	"department_id", "department_name", "zalo_user_id", "created_at"}

var deviceCols = []string{"id", "name", "model", "serial_number", "manufacturer", "location",
	"department_id", "department_name", "category_id", "category_name", "category_color", "purchase_date", "warranty_expiry",
	"status", "require_auth", "inspection_password", "inspection_frequency", "notes", "created_at", "updated_at", "last_inspection_at"}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:      testSecret,
		JWTExpireHours: 1,
		ReportTimezone: "Asia/Ho_Chi_Minh",
		DataDir:        "testdata",
		PublicBaseURL:  "http://localhost:3000",
	}
}

func testServer(t *testing.T) (*httptest.Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(newRouter(db, testConfig(), services{Logger: logger}))
	t.Cleanup(srv.Close)
	return srv, mock
}

func bearer(t *testing.T, userID int, role string) string {
	t.Helper()
	tok, err := middleware.NewToken([]byte(testSecret), middleware.Claims{UserID: userID, Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	return "Bearer " + tok
}

// TestAPI_LoginThenListDevices builds the full router with a sqlmock-backed DB,
// logs in to get a JWT, then calls GET /devices with the token.
func TestAPI_LoginThenListDevices(t *testing.T) {
	srv, mock := testServer(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	now := time.Now()
	mock.ExpectQuery(`FROM users u`).
		WithArgs("lan").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(3, "lan", string(hash), "Nguyễn Lan", "inspector", "", true, nil, "", "", now))
	mock.ExpectQuery(`FROM devices d`).
		WillReturnRows(sqlmock.NewRows(deviceCols).
			AddRow("d1", "Máy siêu âm", "LOGIQ", "SN1", "GE", "Phòng 101", nil, "", nil, "", "", "", "",
				"active", false, "", "monthly", "", now, now, nil))

	// 1) Login
	loginBody, _ := json.Marshal(map[string]string{"username": "lan", "password": "secret1"})
	loginResp, err := http.Post(srv.URL+"/auth/login", "application/json", bytes.NewReader(loginBody))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer loginResp.Body.Close()
	if loginResp.StatusCode != http.StatusOK {
		t.Fatalf("login status: got %d, want 200", loginResp.StatusCode)
	}
	var loginOut struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(loginResp.Body).Decode(&loginOut); err != nil || loginOut.Token == "" {
		t.Fatalf("login response: %v", err)
	}

	// 2) GET /devices with Bearer token
	req, _ := http.NewRequest("GET", srv.URL+"/devices", nil)
	req.Header.Set("Authorization", "Bearer "+loginOut.Token)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("devices request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /devices status: got %d, want 200", resp.StatusCode)
	}
	var devices []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&devices); err != nil {
		t.Fatalf("decode devices: %v", err)
	}
	if len(devices) != 1 || devices[0].ID != "d1" {
		t.Errorf("unexpected devices: %+v", devices)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAPI_AccessControl(t *testing.T) {
	srv, mock := testServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"no token", "GET", "/devices", "", http.StatusUnauthorized},
		{"viewer cannot create devices", "POST", "/devices", bearer(t, 5, "viewer"), http.StatusForbidden},
		{"technician cannot delete devices", "DELETE", "/devices/d1", bearer(t, 5, "technician"), http.StatusForbidden},
		{"inspector cannot list users", "GET", "/users", bearer(t, 5, "inspector"), http.StatusForbidden},
		{"inspector cannot read config", "GET", "/config", bearer(t, 5, "inspector"), http.StatusForbidden},
		{"inspector cannot delete inspections", "DELETE", "/inspections/1", bearer(t, 5, "inspector"), http.StatusForbidden},
		{"inspector cannot export", "GET", "/export/devices", bearer(t, 5, "inspector"), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(`{}`))
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			resp, err := srv.Client().Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("%s %s: got %d, want %d", tt.method, tt.path, resp.StatusCode, tt.want)
			}
		})
	}

	// None of the rejected requests may reach the database.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAPI_WebhookIsPublic(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Post(srv.URL+"/zalo/webhook", "application/json", strings.NewReader(`{"ok":false}`))
	if err != nil {
		t.Fatalf("webhook request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("POST /zalo/webhook status: got %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

// TestAPI_Health is a quick smoke test for the health endpoint.
func TestAPI_Health(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status: got %d, want 200", resp.StatusCode)
	}
}

// TestAPI_Ready checks that /ready pings the DB and returns 200 when DB is reachable.
func TestAPI_Ready(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatalf("ready request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /ready status: got %d, want 200", resp.StatusCode)
	}
}

func TestAPI_Metrics(t *testing.T) {
	srv, _ := testServer(t)

	http.Get(srv.URL + "/health")
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics status: got %d, want 200", resp.StatusCode)
	}
}
