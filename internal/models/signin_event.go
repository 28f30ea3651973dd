package models

import "time"

// SignInEvent is one row of the durable login audit trail. Passwords and
// codes are never part of it.
type SignInEvent struct {
	ID      int64     `json:"id"`
	Email   string    `json:"email"`
	Phase   string    `json:"phase"`   // credentials | awaiting_code
	Outcome string    `json:"outcome"` // code_sent, denied, success, ...
	At      time.Time `json:"at"`
}
