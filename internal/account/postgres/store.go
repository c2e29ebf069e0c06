// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

// Package postgres implements account.Store on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/roster/roster/internal/account"
)

// Unique index names from the accounts migration.
const (
	emailKey       = "accounts_email_key"
	handleKey      = "accounts_handle_key"
	singleAdminKey = "accounts_single_admin_key"
)

const accountColumns = `id, email, handle, password_hash, role, email_verified, verification_token,
	failed_login_attempts, locked, first_name, last_name, bio, profile_picture_url,
	linkedin_profile_url, github_profile_url, is_professional, professional_status_updated_at,
	created_at, updated_at, last_login_at`

// poolIface is the subset of pgxpool.Pool used by Store, allowing pgxmock in tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements account.Store using PostgreSQL.
type Store struct {
	pool poolIface
	now  func() time.Time
}

// NewStore creates a new PostgreSQL account store.
func NewStore(pool poolIface) *Store {
	return &Store{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Get retrieves an account by ID, email or handle. Email and handle match
// case-insensitively.
func (s *Store) Get(ctx context.Context, key account.Key) (*account.Account, error) {
	var where string
	switch key.Field {
	case account.KeyID:
		where = "id = $1"
	case account.KeyEmail:
		where = "lower(email) = lower($1)"
	case account.KeyHandle:
		where = "lower(handle) = lower($1)"
	default:
		return nil, oops.Code("ACCOUNT_INVALID_KEY").
			With("field", string(key.Field)).
			Errorf("unsupported lookup field")
	}

	row := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, key.Value)
	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With(string(key.Field), key.Value).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account").
			With(string(key.Field), key.Value).
			Wrap(err)
	}
	return acc, nil
}

// Scan returns the number of matching accounts and one page of them.
func (s *Store) Scan(ctx context.Context, filter account.Filter, sort account.Sort, page account.Page) (int, []*account.Account, error) {
	where, args := whereClause(filter)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`+where, args...).Scan(&total); err != nil {
		return 0, nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "count matching accounts").
			Wrap(err)
	}

	query := `SELECT ` + accountColumns + ` FROM accounts` + where + orderClause(sort)
	if page.Limit > 0 {
		args = append(args, page.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if page.Skip > 0 {
		args = append(args, page.Skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return 0, nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "query accounts").
			Wrap(err)
	}
	defer rows.Close()

	accounts := make([]*account.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return 0, nil, err
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "iterate accounts").
			Wrap(err)
	}
	return total, accounts, nil
}

// Insert stores a new account. A zero ID is replaced with a fresh ULID and
// both timestamps are stamped with the current time.
func (s *Store) Insert(ctx context.Context, a *account.Account) error {
	if a.ID.IsZero() {
		a.ID = ulid.Make()
	}
	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		a.ID.String(),
		a.Email,
		a.Handle,
		a.PasswordHash,
		string(a.Role),
		a.EmailVerified,
		nullableToken(a.VerificationToken),
		a.FailedLoginAttempts,
		a.Locked,
		a.FirstName,
		a.LastName,
		a.Bio,
		a.ProfilePictureURL,
		a.LinkedInURL,
		a.GitHubURL,
		a.IsProfessional,
		a.ProfessionalStatusUpdatedAt,
		a.CreatedAt,
		a.UpdatedAt,
		a.LastLoginAt,
	)
	if err != nil {
		if conflict := conflictError(err, a.Email, a.Handle); conflict != nil {
			return conflict
		}
		return oops.Code("ACCOUNT_INSERT_FAILED").
			With("operation", "insert account").
			With("id", a.ID.String()).
			Wrap(err)
	}
	return nil
}

// UpdateFields writes the non-nil fields of changes and stamps updated_at.
func (s *Store) UpdateFields(ctx context.Context, id ulid.ULID, changes account.Changes) error {
	set, args := setClause(changes)
	args = append(args, s.now())
	set = append(set, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id.String())

	query := fmt.Sprintf("UPDATE accounts SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		var email, handle string
		if changes.Email != nil {
			email = *changes.Email
		}
		if changes.Handle != nil {
			handle = *changes.Handle
		}
		if conflict := conflictError(err, email, handle); conflict != nil {
			return conflict
		}
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update account").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// Delete removes an account and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id ulid.ULID) (bool, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id.String())
	if err != nil {
		return false, oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "delete account").
			With("id", id.String()).
			Wrap(err)
	}
	return result.RowsAffected() > 0, nil
}

// Count returns the number of accounts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, oops.Code("ACCOUNT_COUNT_FAILED").
			With("operation", "count accounts").
			Wrap(err)
	}
	return n, nil
}

// conflictError maps a unique violation onto the account sentinels. It returns
// nil for any other error.
func conflictError(err error, email, handle string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case emailKey:
		return oops.Code("ACCOUNT_EMAIL_TAKEN").With("email", email).Wrap(account.ErrEmailTaken)
	case handleKey:
		return oops.Code("ACCOUNT_HANDLE_TAKEN").With("handle", handle).Wrap(account.ErrHandleTaken)
	case singleAdminKey:
		return oops.Code("ACCOUNT_ADMIN_EXISTS").Wrap(account.ErrAdminExists)
	}
	return nil
}

func nullableToken(token string) *string {
	if token == "" {
		return nil
	}
	return &token
}

// likePattern escapes LIKE metacharacters so s matches as a literal substring.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func whereClause(f account.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Email != "" {
		add("email ILIKE $%d", likePattern(f.Email))
	}
	if f.Handle != "" {
		add("handle ILIKE $%d", likePattern(f.Handle))
	}
	if f.Role != nil {
		add("role = $%d", string(*f.Role))
	}
	if f.Locked != nil {
		add("locked = $%d", *f.Locked)
	}
	if f.Professional != nil {
		add("is_professional = $%d", *f.Professional)
	}
	if f.RegisteredFrom != nil {
		add("created_at >= $%d", *f.RegisteredFrom)
	}
	if f.RegisteredTo != nil {
		add("created_at <= $%d", *f.RegisteredTo)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// sortColumns maps the sort allowlist onto SQL expressions.
var sortColumns = map[account.SortField]string{
	account.SortEmail:     "email",
	account.SortHandle:    "lower(handle)",
	account.SortCreatedAt: "created_at",
	account.SortUpdatedAt: "updated_at",
	account.SortFirstName: "first_name",
	account.SortLastName:  "last_name",
}

func orderClause(sort account.Sort) string {
	col, ok := sortColumns[sort.Field]
	if !ok {
		col = sortColumns[account.SortCreatedAt]
	}
	dir := "ASC"
	if sort.Descending {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir)
}

func setClause(c account.Changes) ([]string, []any) {
	var (
		set  []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if c.Email != nil {
		add("email", *c.Email)
	}
	if c.Handle != nil {
		add("handle", *c.Handle)
	}
	if c.PasswordHash != nil {
		add("password_hash", *c.PasswordHash)
	}
	if c.Role != nil {
		add("role", string(*c.Role))
	}
	if c.EmailVerified != nil {
		add("email_verified", *c.EmailVerified)
	}
	if c.VerificationToken != nil {
		add("verification_token", nullableToken(*c.VerificationToken))
	}
	if c.FailedLoginAttempts != nil {
		add("failed_login_attempts", *c.FailedLoginAttempts)
	}
	if c.Locked != nil {
		add("locked", *c.Locked)
	}
	if c.LastLoginAt != nil {
		add("last_login_at", *c.LastLoginAt)
	}
	if c.FirstName != nil {
		add("first_name", *c.FirstName)
	}
	if c.LastName != nil {
		add("last_name", *c.LastName)
	}
	if c.Bio != nil {
		add("bio", *c.Bio)
	}
	if c.ProfilePictureURL != nil {
		add("profile_picture_url", *c.ProfilePictureURL)
	}
	if c.LinkedInURL != nil {
		add("linkedin_profile_url", *c.LinkedInURL)
	}
	if c.GitHubURL != nil {
		add("github_profile_url", *c.GitHubURL)
	}
	if c.IsProfessional != nil {
		add("is_professional", *c.IsProfessional)
	}
	if c.ProfessionalStatusUpdatedAt != nil {
		add("professional_status_updated_at", *c.ProfessionalStatusUpdatedAt)
	}
	return set, args
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		a     account.Account
		idStr string
		role  string
		token *string
	)
	err := row.Scan(
		&idStr,
		&a.Email,
		&a.Handle,
		&a.PasswordHash,
		&role,
		&a.EmailVerified,
		&token,
		&a.FailedLoginAttempts,
		&a.Locked,
		&a.FirstName,
		&a.LastName,
		&a.Bio,
		&a.ProfilePictureURL,
		&a.LinkedInURL,
		&a.GitHubURL,
		&a.IsProfessional,
		&a.ProfessionalStatusUpdatedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with lookup context
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("operation", "parse account id").
			With("id", idStr).
			Wrap(err)
	}
	a.ID = id
	a.Role = account.Role(role)
	if token != nil {
		a.VerificationToken = *token
	}
	return &a, nil
}

var _ account.Store = (*Store)(nil)
