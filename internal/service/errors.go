package service

import "errors"

// Login outcomes. Every one of these is recoverable by the user retrying.
var (
	ErrUserNotFound       = errors.New("no account found for that email")
	ErrAmbiguousIdentity  = errors.New("more than one account uses that email")
	ErrChallengeMissing   = errors.New("no login code pending for this session")
	ErrChallengeCorrupt   = errors.New("pending login code is unreadable")
	ErrChallengeExpired   = errors.New("login code expired")
	ErrChallengeMismatch  = errors.New("login code does not match")
	ErrChallengeRejected  = errors.New("too many wrong login codes")
	ErrPendingApproval    = errors.New("account is waiting for admin approval")
	ErrDeliveryFailed     = errors.New("login code could not be delivered")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Account and ledger outcomes.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUsernameTaken = errors.New("username already taken")
	ErrRoomFull      = errors.New("room has no vacancies")
	ErrRoomNotFound  = errors.New("room not found")
	ErrNoRentPlan    = errors.New("no rent plan configured")
	ErrForbidden     = errors.New("not allowed")
)
