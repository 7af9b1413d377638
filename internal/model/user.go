package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role decides what a user may see and edit.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole converts a string to a Role, defaulting to RoleUser.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// User is an account that owns objectives and receives reminders.
type User struct {
	Key       string    `json:"key"`
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// SetKey sets the database key for this user.
func (u *User) SetKey(key string) {
	u.Key = key
}

// GetKey returns the database key for this user.
func (u *User) GetKey() string {
	return u.Key
}

// GenerateUserKey generates a database key for a user id.
func GenerateUserKey(id string) string {
	return fmt.Sprintf("%s:%s", PrefixUser, id)
}

// GenerateUserEmailKey generates the email index key for a user.
// Emails are compared case-insensitively.
func GenerateUserEmailKey(email string) string {
	return fmt.Sprintf("%s:%s", PrefixUserEmail, NormalizeEmail(email))
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewUser creates a user with a fresh id.
func NewUser(email string, role Role) *User {
	id := uuid.NewString()
	if role == "" {
		role = RoleUser
	}
	return &User{
		Key:       GenerateUserKey(id),
		ID:        id,
		Email:     NormalizeEmail(email),
		Role:      role,
		CreatedAt: time.Now(),
	}
}

// IsAdmin reports whether the user may act on any user's objectives.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CanEdit reports whether u may change an objective owned by ownerID.
func (u *User) CanEdit(ownerID string) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin() || u.ID == ownerID
}
