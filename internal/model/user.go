package model

import "time"

// User is the local record of an externally authenticated identity.
type User struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"external_id"`
	TelegramID *int64    `json:"telegram_id,omitempty"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
