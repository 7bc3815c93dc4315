package models

import "time"

// OTPChallenge is the server-held record of an issued one-time passcode.
// It only ever lives inside a Session; a nil challenge means none is pending.
type OTPChallenge struct {
	CodeHash  string    `json:"code_hash"`
	Email     string    `json:"email"`
	Attempts  int       `json:"attempts"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Complete reports whether the fields needed for verification are all present.
func (c *OTPChallenge) Complete() bool {
	return c != nil && c.CodeHash != "" && c.Email != ""
}

// Expired uses a strict comparison: verifying at exactly ExpiresAt is still valid.
func (c *OTPChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
