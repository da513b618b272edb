package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/crucial707/meddevice/internal/middleware"
	"github.com/crucial707/meddevice/internal/repo"
)

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(b)
}

func loginRequest(username, password string) *http.Request {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAuthHandler_Login(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM users u .* WHERE u.username = \$1`).
		WithArgs("lan").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(4, "lan", mustHash(t, "secret1"), "Nguyễn Lan", "inspector", "", true, 2, "Nội", "", time.Now()))

	secret := []byte("test-secret")
	h := &AuthHandler{UserRepo: repo.NewUserRepo(db), Secret: secret}
	rr := httptest.NewRecorder()
	h.Login(rr, loginRequest("lan", "secret1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("Login status: got %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID   int    `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.User.ID != 4 || out.User.Role != "inspector" {
		t.Errorf("unexpected user: %+v", out.User)
	}
	claims, err := middleware.ParseToken(secret, out.Token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 4 || claims.Role != "inspector" || claims.DepartmentID == nil || *claims.DepartmentID != 2 {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM users u .* WHERE u.username = \$1`).
		WithArgs("lan").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(4, "lan", mustHash(t, "secret1"), "", "inspector", "", true, nil, "", "", time.Now()))

	h := &AuthHandler{UserRepo: repo.NewUserRepo(db), Secret: []byte("test-secret")}
	rr := httptest.NewRecorder()
	h.Login(rr, loginRequest("lan", "wrong"))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Login status: got %d, want 401", rr.Code)
	}
}

func TestAuthHandler_Login_UnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM users u .* WHERE u.username = \$1`).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(userCols))

	h := &AuthHandler{UserRepo: repo.NewUserRepo(db), Secret: []byte("test-secret")}
	rr := httptest.NewRecorder()
	h.Login(rr, loginRequest("nobody", "whatever"))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Login status: got %d, want 401", rr.Code)
	}
}

func TestAuthHandler_Login_Locked(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM users u .* WHERE u.username = \$1`).
		WithArgs("minh").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(5, "minh", mustHash(t, "secret1"), "", "technician", "", false, nil, "", "", time.Now()))

	h := &AuthHandler{UserRepo: repo.NewUserRepo(db), Secret: []byte("test-secret")}
	rr := httptest.NewRecorder()
	h.Login(rr, loginRequest("minh", "secret1"))

	if rr.Code != http.StatusForbidden {
		t.Errorf("Login status: got %d, want 403", rr.Code)
	}
	var out map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["error"] != "account_locked" {
		t.Errorf("error: got %q", out["error"])
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := &AuthHandler{Secret: []byte("test-secret")}
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("{")))
	rr := httptest.NewRecorder()
	h.Login(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Login status: got %d, want 400", rr.Code)
	}
}
