// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package account

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// KeyField names the unique column a Key addresses.
type KeyField string

// Lookup fields.
const (
	KeyID     KeyField = "id"
	KeyEmail  KeyField = "email"
	KeyHandle KeyField = "handle"
)

// Key identifies a single account by one of its unique fields.
type Key struct {
	Field KeyField
	Value string
}

// ByID returns a Key matching the account ID.
func ByID(id ulid.ULID) Key { return Key{Field: KeyID, Value: id.String()} }

// ByEmail returns a Key matching the (normalized) email.
func ByEmail(email string) Key { return Key{Field: KeyEmail, Value: NormalizeEmail(email)} }

// ByHandle returns a Key matching the handle, case-insensitively.
func ByHandle(handle string) Key { return Key{Field: KeyHandle, Value: strings.TrimSpace(handle)} }

// Filter restricts a scan. Nil/empty fields do not constrain. All predicates are ANDed;
// string filters are case-insensitive substring matches.
type Filter struct {
	Email          string
	Handle         string
	Role           *Role
	Locked         *bool
	Professional   *bool
	RegisteredFrom *time.Time
	RegisteredTo   *time.Time
}

// SortField is a column accounts can be ordered by.
type SortField string

// Sortable columns.
const (
	SortEmail     SortField = "email"
	SortHandle    SortField = "nickname"
	SortCreatedAt SortField = "created_at"
	SortUpdatedAt SortField = "updated_at"
	SortFirstName SortField = "first_name"
	SortLastName  SortField = "last_name"
)

// ParseSortField maps a requested sort name onto the allowlist. Unknown names
// fall back to SortCreatedAt. "handle" is accepted as an alias of "nickname".
func ParseSortField(name string) SortField {
	switch f := SortField(strings.ToLower(strings.TrimSpace(name))); f {
	case SortEmail, SortHandle, SortCreatedAt, SortUpdatedAt, SortFirstName, SortLastName:
		return f
	case "handle":
		return SortHandle
	default:
		return SortCreatedAt
	}
}

// Sort orders a scan.
type Sort struct {
	Field      SortField
	Descending bool
}

// Page bounds a scan.
type Page struct {
	Skip  int
	Limit int
}

// Changes is a partial update. Only non-nil fields are written.
// A non-nil empty VerificationToken clears the stored token.
type Changes struct {
	Email             *string
	Handle            *string
	PasswordHash      *string
	Role              *Role
	EmailVerified     *bool
	VerificationToken *string

	FailedLoginAttempts *int
	Locked              *bool
	LastLoginAt         *time.Time

	FirstName                   *string
	LastName                    *string
	Bio                         *string
	ProfilePictureURL           *string
	LinkedInURL                 *string
	GitHubURL                   *string
	IsProfessional              *bool
	ProfessionalStatusUpdatedAt *time.Time
}

// Empty reports whether the change set writes nothing.
func (c Changes) Empty() bool {
	return c == Changes{}
}

// Apply writes the non-nil fields of c onto a.
func (c Changes) Apply(a *Account) {
	if c.Email != nil {
		a.Email = *c.Email
	}
	if c.Handle != nil {
		a.Handle = *c.Handle
	}
	if c.PasswordHash != nil {
		a.PasswordHash = *c.PasswordHash
	}
	if c.Role != nil {
		a.Role = *c.Role
	}
	if c.EmailVerified != nil {
		a.EmailVerified = *c.EmailVerified
	}
	if c.VerificationToken != nil {
		a.VerificationToken = *c.VerificationToken
	}
	if c.FailedLoginAttempts != nil {
		a.FailedLoginAttempts = *c.FailedLoginAttempts
	}
	if c.Locked != nil {
		a.Locked = *c.Locked
	}
	if c.LastLoginAt != nil {
		t := *c.LastLoginAt
		a.LastLoginAt = &t
	}
	if c.FirstName != nil {
		a.FirstName = *c.FirstName
	}
	if c.LastName != nil {
		a.LastName = *c.LastName
	}
	if c.Bio != nil {
		a.Bio = *c.Bio
	}
	if c.ProfilePictureURL != nil {
		a.ProfilePictureURL = *c.ProfilePictureURL
	}
	if c.LinkedInURL != nil {
		a.LinkedInURL = *c.LinkedInURL
	}
	if c.GitHubURL != nil {
		a.GitHubURL = *c.GitHubURL
	}
	if c.IsProfessional != nil {
		a.IsProfessional = *c.IsProfessional
	}
	if c.ProfessionalStatusUpdatedAt != nil {
		t := *c.ProfessionalStatusUpdatedAt
		a.ProfessionalStatusUpdatedAt = &t
	}
}

// Store is the record store the Directory is written against.
type Store interface {
	// Get retrieves a single account. Returns ErrNotFound when absent.
	Get(ctx context.Context, key Key) (*Account, error)

	// Scan returns the total number of accounts matching filter and one page of them.
	Scan(ctx context.Context, filter Filter, sort Sort, page Page) (int, []*Account, error)

	// Insert stores a new account, assigning ID (when zero) and timestamps.
	// Returns ErrEmailTaken, ErrHandleTaken or ErrAdminExists on conflicts.
	Insert(ctx context.Context, account *Account) error

	// UpdateFields writes a partial update and stamps UpdatedAt.
	// Returns ErrNotFound when the account does not exist.
	UpdateFields(ctx context.Context, id ulid.ULID, changes Changes) error

	// Delete hard-deletes an account and reports whether a row was removed.
	Delete(ctx context.Context, id ulid.ULID) (bool, error)

	// Count returns the number of accounts.
	Count(ctx context.Context) (int, error)
}
