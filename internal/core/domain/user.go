package domain

import (
	"strings"
	"time"
)

// User models an account holder. PasswordHash never crosses the API
// boundary: it is excluded from JSON and stripped by Sanitized before a
// handler ever sees the value.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Sanitized returns a copy of the user that is safe to serialise.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone
}

// NormalizeEmail canonicalises an email address for lookups and uniqueness
// checks. Addresses are compared case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
