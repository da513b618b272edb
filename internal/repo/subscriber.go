package repo

import (
	"context"
	"database/sql"

	"github.com/crucial707/meddevice/internal/models"
)

// SubscriberRepo persists chat ids that asked for notifications through the bot.
type SubscriberRepo struct {
	DB *sql.DB
}

// NewSubscriberRepo returns a new SubscriberRepo.
func NewSubscriberRepo(db *sql.DB) *SubscriberRepo {
	return &SubscriberRepo{DB: db}
}

// Subscribe is idempotent; a repeat call refreshes the display name.
func (r *SubscriberRepo) Subscribe(ctx context.Context, chatID, displayName string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO zalo_subscribers (chat_id, display_name) VALUES ($1, $2)
		ON CONFLICT (chat_id) DO UPDATE SET display_name = EXCLUDED.display_name`, chatID, displayName)
	return err
}

// Unsubscribe reports whether a row was removed.
func (r *SubscriberRepo) Unsubscribe(ctx context.Context, chatID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM zalo_subscribers WHERE chat_id = $1`, chatID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *SubscriberRepo) List(ctx context.Context) ([]models.Subscriber, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, chat_id, display_name, subscribed_at FROM zalo_subscribers ORDER BY subscribed_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Subscriber{}
	for rows.Next() {
		var s models.Subscriber
		if err := rows.Scan(&s.ID, &s.ChatID, &s.DisplayName, &s.SubscribedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// ChatIDs returns just the ids, for broadcast.
func (r *SubscriberRepo) ChatIDs(ctx context.Context) ([]string, error) {
	subs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.ChatID)
	}
	return ids, nil
}
