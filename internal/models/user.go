package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleMember        Role = "member"
)

type User struct {
	ID           string    `json:"id" dynamodbav:"id"`
	Username     string    `json:"username" dynamodbav:"username"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	IsAdmin      bool      `json:"is_admin" dynamodbav:"is_admin"`
	IsApproved   bool      `json:"is_approved" dynamodbav:"is_approved"`
	AdminID      string    `json:"admin_id,omitempty" dynamodbav:"admin_id,omitempty"`
	RoomID       string    `json:"room_id,omitempty" dynamodbav:"room_id,omitempty"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

func (u *User) GetPK() string {
	return "USER#" + u.ID
}

func (u *User) GetSK() string {
	return "METADATA"
}

// Role reports how the user lands after login.
func (u *User) Role() Role {
	if u.IsAdmin {
		return RoleAdministrator
	}
	return RoleMember
}

// CanLogin is false for roommates still waiting for their admin's approval.
func (u *User) CanLogin() bool {
	return u.IsAdmin || u.IsApproved
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
