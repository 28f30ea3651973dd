package models

import "time"

// OtpRecord is the stored login code for one identifier. At most one record is
// live per identifier; issuing a new code overwrites the previous one.
type OtpRecord struct {
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}
