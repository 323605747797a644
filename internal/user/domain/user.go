package domain

import (
	"strings"
	"time"
)

// Role is the access level of a user account.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleBroker Role = "broker"
	RoleUser   Role = "user"
)

// IsValid checks if the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleBroker, RoleUser:
		return true
	}
	return false
}

// IsStaff reports whether the role may manage listings and inquiries.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleBroker
}

// User is an account that can sign in to the dashboard.
type User struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone,omitempty"`
	PasswordHash     string     `json:"-"`
	Role             Role       `json:"role"`
	IsActive         bool       `json:"is_active"`
	IsVerified       bool       `json:"is_verified"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	TwoFactorSecret  string     `json:"-"`
	BackupCodes      []string   `json:"-"` // bcrypt hashes
	LastLogin        *time.Time `json:"last_login,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NormalizeEmail lower-cases and trims an address so uniqueness holds regardless of input casing.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserFilter narrows admin user listings.
type UserFilter struct {
	Role     Role
	IsActive *bool
	Search   string // name or email substring
	Page     int
	Limit    int
}

// RoleCounts summarizes the user base for dashboards.
type RoleCounts struct {
	Total    int64 `json:"total"`
	Admins   int64 `json:"admins"`
	Brokers  int64 `json:"brokers"`
	Users    int64 `json:"users"`
	Verified int64 `json:"verified"`
	Active   int64 `json:"active"`
}
