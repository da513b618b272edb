package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/crucial707/meddevice/internal/repo"
)

func TestTicketHandler_CreateTicket(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO incident_tickets`).
		WithArgs("a1", "Màn hình nhấp nháy", "", "high", 4, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

	h := &TicketHandler{Repo: repo.NewTicketRepo(db)}
	body := `{"device_id":"a1","title":"Màn hình nhấp nháy","priority":"high"}`
	req := asUser(httptest.NewRequest("POST", "/tickets", strings.NewReader(body)), 4, "technician")
	rr := httptest.NewRecorder()
	h.CreateTicket(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("CreateTicket status: got %d, want 201 (%s)", rr.Code, rr.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestTicketHandler_CreateTicket_BadPriority(t *testing.T) {
	h := &TicketHandler{}
	body := `{"device_id":"a1","title":"x","priority":"urgent"}`
	rr := httptest.NewRecorder()
	h.CreateTicket(rr, httptest.NewRequest("POST", "/tickets", strings.NewReader(body)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("CreateTicket status: got %d, want 400", rr.Code)
	}
}

func TestTicketHandler_ClaimTicket_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE incident_tickets SET assigned_to = \$1, status = 'in_progress' WHERE id = \$2`).
		WithArgs(4, 77).
		WillReturnResult(sqlmock.NewResult(0, 0))

	h := &TicketHandler{Repo: repo.NewTicketRepo(db)}
	req := asUser(requestWithChiURLParams("POST", "/tickets/77/claim", nil, map[string]string{"id": "77"}), 4, "technician")
	rr := httptest.NewRecorder()
	h.ClaimTicket(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("ClaimTicket status: got %d, want 404", rr.Code)
	}
}

func TestTicketHandler_AddReply_Empty(t *testing.T) {
	h := &TicketHandler{}
	req := requestWithChiURLParams("POST", "/tickets/1/replies", []byte(`{"message":""}`), map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	h.AddReply(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("AddReply status: got %d, want 400", rr.Code)
	}
}
