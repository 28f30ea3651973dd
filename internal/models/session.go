package models

import "time"

// Session is a server-side session record. The first login phase creates one
// as a side effect of credential verification and immediately tears it down;
// only the second phase leaves a session alive.
type Session struct {
	ID        string    `json:"id"`
	UserID    int       `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
