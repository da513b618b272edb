package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSubscriberRepo_Subscribe_Upserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO zalo_subscribers \(chat_id, display_name\) VALUES \(\$1, \$2\) ON CONFLICT \(chat_id\)`).
		WithArgs("c1", "Lan").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := NewSubscriberRepo(db).Subscribe(context.Background(), "c1", "Lan"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSubscriberRepo_Unsubscribe(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`DELETE FROM zalo_subscribers WHERE chat_id = \$1`).
		WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM zalo_subscribers WHERE chat_id = \$1`).
		WithArgs("c2").WillReturnResult(sqlmock.NewResult(0, 0))

	r := NewSubscriberRepo(db)
	if ok, err := r.Unsubscribe(context.Background(), "c1"); err != nil || !ok {
		t.Errorf("Unsubscribe(c1): got %v, %v", ok, err)
	}
	if ok, err := r.Unsubscribe(context.Background(), "c2"); err != nil || ok {
		t.Errorf("Unsubscribe(c2): got %v, %v", ok, err)
	}
}

func TestSubscriberRepo_ChatIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, chat_id, display_name, subscribed_at FROM zalo_subscribers ORDER BY subscribed_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "chat_id", "display_name", "subscribed_at"}).
			AddRow(2, "c2", "Minh", now).
			AddRow(1, "c1", "Lan", now.Add(-time.Hour)))

	ids, err := NewSubscriberRepo(db).ChatIDs(context.Background())
	if err != nil {
		t.Fatalf("ChatIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "c2" || ids[1] != "c1" {
		t.Errorf("ChatIDs: got %v", ids)
	}
}
