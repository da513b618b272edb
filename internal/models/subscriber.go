package models

import "time"

// Subscriber is a chat id that opted in to notifications without a user account.
type Subscriber struct {
	ID           int       `json:"id"`
	ChatID       string    `json:"chat_id"`
	DisplayName  string    `json:"display_name"`
	SubscribedAt time.Time `json:"subscribed_at"`
}
