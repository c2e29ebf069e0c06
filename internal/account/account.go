// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package account

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Role is the authorization level of an account.
type Role string

// Account roles. Only RoleAnonymous -> RoleAuthenticated happens inside this
// package; RoleAdmin is assigned once at bootstrap and RoleManager is granted
// by an external privileged action.
const (
	RoleAnonymous     Role = "ANONYMOUS"
	RoleAuthenticated Role = "AUTHENTICATED"
	RoleManager       Role = "MANAGER"
	RoleAdmin         Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAnonymous, RoleAuthenticated, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts a case-insensitive role name into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Account represents a user account.
type Account struct {
	ID                ulid.ULID
	Email             string
	Handle            string
	PasswordHash      string
	Role              Role
	EmailVerified     bool
	VerificationToken string

	FailedLoginAttempts int
	Locked              bool

	FirstName                   string
	LastName                    string
	Bio                         string
	ProfilePictureURL           string
	LinkedInURL                 string
	GitHubURL                   string
	IsProfessional              bool
	ProfessionalStatusUpdatedAt *time.Time

	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
}

// IsAdmin returns true for the bootstrap administrator.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.ProfessionalStatusUpdatedAt != nil {
		t := *a.ProfessionalStatusUpdatedAt
		c.ProfessionalStatusUpdatedAt = &t
	}
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

// NormalizeEmail trims and lower-cases an email address. Emails are stored
// and looked up in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
