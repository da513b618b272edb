package schedules

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crucial707/meddevice/cmd/cli/config"
	"github.com/crucial707/meddevice/internal/models"
)

// captureOutput helps capture stdout during command execution.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return buf.String()
}

func loggedIn(t *testing.T, srv *httptest.Server) {
	t.Helper()
	t.Setenv("MEDDEVICE_API_URL", srv.URL)
	t.Setenv("MEDDEVICE_TOKEN_FILE", filepath.Join(t.TempDir(), "token"))
	if err := config.SaveToken("tok-1"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
}

func TestListSchedules_TableOutput(t *testing.T) {
	day := 1
	list := []models.ScheduledReport{
		{ID: 1, Name: "Báo cáo sáng", ScheduleType: "daily", ScheduleTime: "08:00", ReportType: "uninspected", Active: true, ChatIDs: []string{"a", "b"}},
		{ID: 2, Name: "Tổng hợp tuần", ScheduleType: "weekly", ScheduleTime: "17:30", ScheduleDay: &day, ReportType: "summary"},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/schedules" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(list)
	}))
	defer srv.Close()
	loggedIn(t, srv)

	cmd := listSchedulesCmd()
	out := captureOutput(t, func() {
		if err := cmd.RunE(cmd, []string{}); err != nil {
			t.Errorf("list: %v", err)
		}
	})

	for _, want := range []string{"Báo cáo sáng", "daily 08:00", "weekly 17:30 (day 1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTestSchedule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/schedules/4/test" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"success":false,"report":"📋 BÁO CÁO","recipients":2,"sent_to":["a"],"failed":["b"]}`))
	}))
	defer srv.Close()
	loggedIn(t, srv)

	cmd := testScheduleCmd()
	var err error
	out := captureOutput(t, func() {
		err = cmd.RunE(cmd, []string{"4"})
	})
	if err == nil {
		t.Error("expected error when a recipient failed")
	}
	if !strings.Contains(out, "Sent to 1 of 2") || !strings.Contains(out, "Failed: b") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestTestSchedule_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"schedule not found"}`))
	}))
	defer srv.Close()
	loggedIn(t, srv)

	cmd := testScheduleCmd()
	err := cmd.RunE(cmd, []string{"99"})
	if err == nil || !strings.Contains(err.Error(), "schedule not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestTestSchedule_InvalidID(t *testing.T) {
	cmd := testScheduleCmd()
	if err := cmd.RunE(cmd, []string{"abc"}); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
}
