package models

import (
	"strings"
	"time"
)

// Role is the only authorization attribute a profile carries.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// UserProfile is the canonical profile shape for both operating modes. Its ID is
// shared with the underlying account identifier.
type UserProfile struct {
	ID          string    `db:"id" json:"id"`
	Email       string    `db:"-" json:"email,omitempty"`
	Role        Role      `db:"role" json:"role"`
	DisplayName string    `db:"full_name" json:"full_name,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the profile holds the admin role.
func (p *UserProfile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// IsStudent reports whether the profile holds the student role.
func (p *UserProfile) IsStudent() bool {
	return p != nil && p.Role == RoleStudent
}

// Name is the legacy "name" field: display name, falling back to e-mail.
func (p *UserProfile) Name() string {
	if p == nil {
		return ""
	}
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	return p.Email
}

// FullName is the legacy "full_name" accessor.
func (p *UserProfile) FullName() string {
	if p == nil {
		return ""
	}
	return p.DisplayName
}

// Clone returns a detached copy so callers cannot mutate session state.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
