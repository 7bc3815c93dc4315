package models

import "time"

// Session is the per-browser server-side state. It is loaded by the session
// middleware and committed when modified.
type Session struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id,omitempty"`
	Role      Role          `json:"role,omitempty"`
	OTP       *OTPChallenge `json:"otp,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`

	modified bool
	rotate   bool
	stored   bool
	previous string
}

// NewSession returns an anonymous, not yet persisted session.
func NewSession(id string, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s *Session) Authenticated() bool {
	return s.UserID != ""
}

// Challenge returns the pending OTP challenge or nil.
func (s *Session) Challenge() *OTPChallenge {
	return s.OTP
}

// SetChallenge replaces any pending challenge.
func (s *Session) SetChallenge(c OTPChallenge) {
	s.OTP = &c
	s.modified = true
}

// ClearChallenge drops the pending challenge and returns it.
func (s *Session) ClearChallenge() *OTPChallenge {
	c := s.OTP
	if c != nil {
		s.OTP = nil
		s.modified = true
	}
	return c
}

// MarkModified forces the session to be written at the end of the request.
func (s *Session) MarkModified() {
	s.modified = true
}

func (s *Session) Modified() bool {
	return s.modified
}

// Authenticate binds the session to user and requests a new session id so an
// id issued before login cannot be reused afterwards.
func (s *Session) Authenticate(u *User) {
	s.UserID = u.ID
	s.Role = u.Role()
	s.modified = true
	s.rotate = true
}

// Logout clears identity and any pending challenge.
func (s *Session) Logout() {
	s.UserID = ""
	s.Role = ""
	s.OTP = nil
	s.modified = true
	s.rotate = true
}

// NeedsRotation reports whether the id must change before the next write.
func (s *Session) NeedsRotation() bool {
	return s.rotate
}

// Rotate swaps in a new id, remembering the old one for deletion.
func (s *Session) Rotate(newID string) {
	if s.stored && s.previous == "" {
		s.previous = s.ID
	}
	s.ID = newID
	s.rotate = false
	s.modified = true
}

// PreviousID is the id replaced by Rotate, if it had been persisted.
func (s *Session) PreviousID() string {
	return s.previous
}

// Stored reports whether the session exists in the store.
func (s *Session) Stored() bool {
	return s.stored
}

// MarkStored is called by the store after a successful write or load.
func (s *Session) MarkStored() {
	s.stored = true
	s.modified = false
	s.previous = ""
}
