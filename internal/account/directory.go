// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roster/roster/pkg/errutil"
)

var tracer = otel.Tracer("roster/account")

// Directory defaults.
const (
	DefaultMaxLoginAttempts = 5
	DefaultPageSize         = 10
)

// dummyPasswordHash is verified when no account matches a login email so that
// unknown and known emails take comparable time. It never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Config holds Directory settings.
type Config struct {
	// MaxLoginAttempts is the number of consecutive failed logins that locks an account.
	MaxLoginAttempts int
}

// Directory orchestrates account lookup, creation, search and the login/lockout
// and email verification state machine. It keeps no mutable state of its own;
// everything lives in the Store, so it is safe for concurrent use.
type Directory struct {
	store            Store
	hasher           PasswordHasher
	notifier         Notifier
	handles          *HandleAllocator
	maxLoginAttempts int
	logger           *slog.Logger
	now              func() time.Time
}

// Option configures a Directory during construction.
type Option func(*Directory)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Directory) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithHandleAllocator replaces the handle allocator.
func WithHandleAllocator(a *HandleAllocator) Option {
	return func(d *Directory) {
		if a != nil {
			d.handles = a
		}
	}
}

// WithClock replaces the time source used for login and profile timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDirectory creates a Directory. Store, hasher and notifier are required.
// A zero MaxLoginAttempts uses DefaultMaxLoginAttempts.
func NewDirectory(store Store, hasher PasswordHasher, notifier Notifier, cfg Config, opts ...Option) (*Directory, error) {
	if store == nil {
		return nil, oops.Code("DIRECTORY_INVALID").Errorf("account store is required")
	}
	if hasher == nil {
		return nil, oops.Code("DIRECTORY_INVALID").Errorf("password hasher is required")
	}
	if notifier == nil {
		return nil, oops.Code("DIRECTORY_INVALID").Errorf("notifier is required")
	}
	if cfg.MaxLoginAttempts < 0 {
		return nil, oops.Code("DIRECTORY_INVALID").
			With("max_login_attempts", cfg.MaxLoginAttempts).
			Errorf("max login attempts must be positive")
	}
	if cfg.MaxLoginAttempts == 0 {
		cfg.MaxLoginAttempts = DefaultMaxLoginAttempts
	}

	d := &Directory{
		store:            store,
		hasher:           hasher,
		notifier:         notifier,
		handles:          NewHandleAllocator(nil),
		maxLoginAttempts: cfg.MaxLoginAttempts,
		logger:           slog.Default(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// MaxLoginAttempts returns the configured lockout threshold.
func (d *Directory) MaxLoginAttempts() int {
	return d.maxLoginAttempts
}

// GetByID returns the account with the given id, or nil when none exists.
func (d *Directory) GetByID(ctx context.Context, id ulid.ULID) (*Account, error) {
	return d.lookup(ctx, ByID(id), "get account by id")
}

// GetByHandle returns the account with the given handle, or nil when none exists.
func (d *Directory) GetByHandle(ctx context.Context, handle string) (*Account, error) {
	return d.lookup(ctx, ByHandle(handle), "get account by handle")
}

// GetByEmail returns the account with the given email, or nil when none exists.
func (d *Directory) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return d.lookup(ctx, ByEmail(email), "get account by email")
}

func (d *Directory) lookup(ctx context.Context, key Key, operation string) (*Account, error) {
	acc, err := d.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil //nolint:nilnil // absent account is not an error
	}
	if err != nil {
		return nil, errStore(operation, err)
	}
	return acc, nil
}

// Count returns the number of accounts.
func (d *Directory) Count(ctx context.Context) (int, error) {
	n, err := d.store.Count(ctx)
	if err != nil {
		return 0, errStore("count accounts", err)
	}
	return n, nil
}

// Create registers a new account.
//
// The first account ever created becomes the pre-verified administrator. Every
// later account starts as RoleAnonymous with a verification token, and the
// notifier is called once the account is persisted. Notification failures are
// logged and do not undo the creation.
func (d *Directory) Create(ctx context.Context, in NewAccount) (acc *Account, err error) {
	ctx, span := tracer.Start(ctx, "account.create")
	defer func() { endSpan(span, err) }()

	in.Email = NormalizeEmail(in.Email)
	in.Handle = strings.TrimSpace(in.Handle)

	if err := ValidateNewAccount(in); err != nil {
		d.logger.WarnContext(ctx, "account creation rejected", "reason", "validation", "error", err)
		return nil, err
	}

	_, err = d.store.Get(ctx, ByEmail(in.Email))
	switch {
	case err == nil:
		d.logger.WarnContext(ctx, "account creation rejected", "reason", "duplicate_email")
		return nil, errDuplicateEmail(in.Email)
	case !errors.Is(err, ErrNotFound):
		return nil, errStore("get account by email", err)
	}

	var handle string
	if in.Handle != "" {
		handle, err = d.handles.Reserve(ctx, d.store, in.Handle)
	} else {
		handle, err = d.handles.Allocate(ctx, d.store)
	}
	if err != nil {
		return nil, err
	}

	hash, err := d.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}
	in.Password = ""

	existing, err := d.store.Count(ctx)
	if err != nil {
		return nil, errStore("count accounts", err)
	}

	acc = &Account{
		Email:             in.Email,
		Handle:            handle,
		PasswordHash:      hash,
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		Bio:               in.Bio,
		ProfilePictureURL: in.ProfilePictureURL,
		LinkedInURL:       in.LinkedInURL,
		GitHubURL:         in.GitHubURL,
	}
	if existing == 0 {
		acc.Role = RoleAdmin
		acc.EmailVerified = true
	} else if err := markPending(acc); err != nil {
		return nil, err
	}

	err = d.store.Insert(ctx, acc)
	if errors.Is(err, ErrAdminExists) {
		d.logger.InfoContext(ctx, "bootstrap administrator created concurrently, registering regular account",
			"email", acc.Email)
		if err := markPending(acc); err != nil {
			return nil, err
		}
		err = d.store.Insert(ctx, acc)
	}
	if err != nil {
		return nil, insertError(err, acc)
	}

	span.SetAttributes(
		attribute.String("account.id", acc.ID.String()),
		attribute.String("account.role", string(acc.Role)),
	)
	AccountsCreated.WithLabelValues(string(acc.Role)).Inc()
	d.logger.InfoContext(ctx, "account created",
		"account_id", acc.ID.String(),
		"email", acc.Email,
		"role", string(acc.Role),
	)

	if !acc.IsAdmin() {
		if notifyErr := d.notifier.SendVerification(ctx, acc.Clone(), acc.VerificationToken); notifyErr != nil {
			d.logger.WarnContext(ctx, "best-effort verification email failed",
				"operation", "send_verification",
				"account_id", acc.ID.String(),
				"error", notifyErr.Error(),
			)
		}
	}

	return acc, nil
}

func markPending(acc *Account) error {
	token, err := GenerateVerificationToken()
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "generate verification token").
			Wrap(err)
	}
	acc.Role = RoleAnonymous
	acc.EmailVerified = false
	acc.VerificationToken = token
	return nil
}

func insertError(err error, acc *Account) error {
	switch {
	case errors.Is(err, ErrEmailTaken):
		return errDuplicateEmail(acc.Email)
	case errors.Is(err, ErrHandleTaken):
		return errDuplicateHandle(acc.Handle)
	default:
		return errStore("insert account", err)
	}
}

// Update applies the supplied fields of in to the account and returns the
// refreshed account. Returns nil without error when the account does not exist.
func (d *Directory) Update(ctx context.Context, id ulid.ULID, in AccountUpdate) (acc *Account, err error) {
	ctx, span := tracer.Start(ctx, "account.update",
		trace.WithAttributes(attribute.String("account.id", id.String())))
	defer func() { endSpan(span, err) }()

	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		in.Email = &email
	}
	if in.Handle != nil {
		handle := strings.TrimSpace(*in.Handle)
		in.Handle = &handle
	}

	if err := ValidateAccountUpdate(in); err != nil {
		d.logger.WarnContext(ctx, "account update rejected", "account_id", id.String(), "error", err)
		return nil, err
	}

	current, err := d.GetByID(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}

	changes := Changes{
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		Bio:               in.Bio,
		ProfilePictureURL: in.ProfilePictureURL,
		LinkedInURL:       in.LinkedInURL,
		GitHubURL:         in.GitHubURL,
	}

	if in.Email != nil && *in.Email != current.Email {
		_, err := d.store.Get(ctx, ByEmail(*in.Email))
		switch {
		case err == nil:
			return nil, errDuplicateEmail(*in.Email)
		case !errors.Is(err, ErrNotFound):
			return nil, errStore("get account by email", err)
		}
		changes.Email = in.Email
	}

	if in.Handle != nil && *in.Handle != current.Handle {
		// A case-only change keeps the account's own reservation.
		if !strings.EqualFold(*in.Handle, current.Handle) {
			if _, err := d.handles.Reserve(ctx, d.store, *in.Handle); err != nil {
				return nil, err
			}
		}
		changes.Handle = in.Handle
	}

	if in.Password != nil {
		hash, err := d.hasher.Hash(*in.Password)
		if err != nil {
			return nil, oops.Code("ACCOUNT_UPDATE_FAILED").
				With("operation", "hash password").
				Wrap(err)
		}
		changes.PasswordHash = &hash
	}

	if in.IsProfessional != nil && *in.IsProfessional != current.IsProfessional {
		now := d.now()
		changes.IsProfessional = in.IsProfessional
		changes.ProfessionalStatusUpdatedAt = &now
	}

	if !changes.Empty() {
		err := d.store.UpdateFields(ctx, id, changes)
		if errors.Is(err, ErrNotFound) {
			return nil, nil //nolint:nilnil // deleted concurrently
		}
		if err != nil {
			return nil, updateError(err, changes)
		}
		d.logger.InfoContext(ctx, "account updated", "account_id", id.String())
	}

	return d.GetByID(ctx, id)
}

func updateError(err error, changes Changes) error {
	switch {
	case errors.Is(err, ErrEmailTaken) && changes.Email != nil:
		return errDuplicateEmail(*changes.Email)
	case errors.Is(err, ErrHandleTaken) && changes.Handle != nil:
		return errDuplicateHandle(*changes.Handle)
	default:
		return errStore("update account", err)
	}
}

// Delete hard-deletes an account and reports whether one was removed.
func (d *Directory) Delete(ctx context.Context, id ulid.ULID) (bool, error) {
	deleted, err := d.store.Delete(ctx, id)
	if err != nil {
		return false, errStore("delete account", err)
	}
	if deleted {
		d.logger.InfoContext(ctx, "account deleted", "account_id", id.String())
	} else {
		d.logger.InfoContext(ctx, "account not found for deletion", "account_id", id.String())
	}
	return deleted, nil
}

// Login verifies credentials and returns the account on success.
//
// Checks run in a fixed order: email verification, then lockout, then the
// password. A locked or unverified account never reveals whether the password
// was correct. Each wrong password increments the failure counter and the
// account locks when the counter reaches the configured threshold.
func (d *Directory) Login(ctx context.Context, email, password string) (acc *Account, err error) {
	ctx, span := tracer.Start(ctx, "account.login")
	defer func() { endSpan(span, err) }()

	acc, err = d.store.Get(ctx, ByEmail(email))
	if errors.Is(err, ErrNotFound) {
		_, _ = d.hasher.Verify(password, dummyPasswordHash) //nolint:errcheck // timing only
		recordLogin(OutcomeInvalidCredentials)
		return nil, errInvalidCredentials()
	}
	if err != nil {
		recordLogin(OutcomeError)
		return nil, errStore("get account by email", err)
	}
	span.SetAttributes(attribute.String("account.id", acc.ID.String()))

	if !acc.EmailVerified {
		recordLogin(OutcomeNotVerified)
		return nil, oops.Code(CodeEmailNotVerified).
			With("account_id", acc.ID.String()).
			Errorf("email not verified, please check your inbox for a verification link")
	}

	if acc.Locked {
		recordLogin(OutcomeLocked)
		return nil, oops.Code(CodeAccountLocked).
			With("account_id", acc.ID.String()).
			Errorf("account is locked due to too many failed login attempts")
	}

	valid, verifyErr := d.hasher.Verify(password, acc.PasswordHash)
	if verifyErr != nil {
		d.logger.WarnContext(ctx, "stored password hash could not be verified",
			"account_id", acc.ID.String(),
			"error", verifyErr.Error(),
		)
		valid = false
	}

	if !valid {
		d.recordFailure(ctx, acc)
		recordLogin(OutcomeInvalidCredentials)
		return nil, errInvalidCredentials()
	}

	d.recordSuccess(ctx, acc, password)
	recordLogin(OutcomeSuccess)
	return acc, nil
}

// recordFailure increments the failure counter and locks the account at the
// threshold. The read-then-write is not atomic: concurrent failures on the same
// account may lose increments.
func (d *Directory) recordFailure(ctx context.Context, acc *Account) {
	attempts := acc.FailedLoginAttempts + 1
	changes := Changes{FailedLoginAttempts: &attempts}
	lock := attempts >= d.maxLoginAttempts && !acc.Locked
	if lock {
		locked := true
		changes.Locked = &locked
	}

	if err := d.store.UpdateFields(ctx, acc.ID, changes); err != nil {
		d.logger.WarnContext(ctx, "best-effort failed-login bookkeeping failed",
			"operation", "record_failure",
			"account_id", acc.ID.String(),
			"error", err.Error(),
		)
		return
	}
	changes.Apply(acc)

	if lock {
		AccountLockouts.Inc()
		d.logger.WarnContext(ctx, "account locked after repeated login failures",
			"account_id", acc.ID.String(),
			"failed_login_attempts", attempts,
		)
	}
}

// recordSuccess resets the failure counter, stamps the login time and upgrades
// the password digest when the hasher asks for it.
func (d *Directory) recordSuccess(ctx context.Context, acc *Account, password string) {
	zero := 0
	now := d.now()
	changes := Changes{FailedLoginAttempts: &zero, LastLoginAt: &now}

	if d.hasher.NeedsUpgrade(acc.PasswordHash) {
		if hash, err := d.hasher.Hash(password); err == nil {
			changes.PasswordHash = &hash
		}
	}

	if err := d.store.UpdateFields(ctx, acc.ID, changes); err != nil {
		d.logger.WarnContext(ctx, "best-effort login bookkeeping failed",
			"operation", "record_success",
			"account_id", acc.ID.String(),
			"error", err.Error(),
		)
		return
	}
	changes.Apply(acc)
}

// IsLocked reports whether the account registered under email is locked.
// Unknown emails are reported as not locked.
func (d *Directory) IsLocked(ctx context.Context, email string) (bool, error) {
	acc, err := d.GetByEmail(ctx, email)
	if err != nil || acc == nil {
		return false, err
	}
	return acc.Locked, nil
}

// ResetPassword sets a new password and clears the failure counter and lock.
// Returns false when the account does not exist.
func (d *Directory) ResetPassword(ctx context.Context, id ulid.ULID, newPassword string) (ok bool, err error) {
	ctx, span := tracer.Start(ctx, "account.reset_password",
		trace.WithAttributes(attribute.String("account.id", id.String())))
	defer func() { endSpan(span, err) }()

	if err := ValidatePassword(newPassword); err != nil {
		return false, err
	}

	acc, err := d.GetByID(ctx, id)
	if err != nil || acc == nil {
		return false, err
	}

	hash, err := d.hasher.Hash(newPassword)
	if err != nil {
		return false, oops.Code("ACCOUNT_RESET_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	zero := 0
	unlocked := false
	err = d.store.UpdateFields(ctx, id, Changes{
		PasswordHash:        &hash,
		FailedLoginAttempts: &zero,
		Locked:              &unlocked,
	})
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errStore("reset password", err)
	}

	d.logger.InfoContext(ctx, "password reset", "account_id", id.String())
	return true, nil
}

// VerifyEmail consumes the verification token. On a match the account becomes
// verified, the token is cleared and a RoleAnonymous account is promoted to
// RoleAuthenticated.
func (d *Directory) VerifyEmail(ctx context.Context, id ulid.ULID, token string) (ok bool, err error) {
	ctx, span := tracer.Start(ctx, "account.verify_email",
		trace.WithAttributes(attribute.String("account.id", id.String())))
	defer func() { endSpan(span, err) }()

	acc, err := d.GetByID(ctx, id)
	if err != nil || acc == nil {
		return false, err
	}
	if !tokensMatch(acc.VerificationToken, token) {
		d.logger.InfoContext(ctx, "email verification token mismatch", "account_id", id.String())
		return false, nil
	}

	verified := true
	cleared := ""
	changes := Changes{EmailVerified: &verified, VerificationToken: &cleared}
	if acc.Role == RoleAnonymous {
		role := RoleAuthenticated
		changes.Role = &role
	}

	err = d.store.UpdateFields(ctx, id, changes)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errStore("verify email", err)
	}

	d.logger.InfoContext(ctx, "email verified", "account_id", id.String())
	return true, nil
}

// Unlock clears the lock and failure counter. Returns false when the account
// does not exist or is not locked.
func (d *Directory) Unlock(ctx context.Context, id ulid.ULID) (bool, error) {
	acc, err := d.GetByID(ctx, id)
	if err != nil || acc == nil || !acc.Locked {
		return false, err
	}

	zero := 0
	unlocked := false
	err = d.store.UpdateFields(ctx, id, Changes{FailedLoginAttempts: &zero, Locked: &unlocked})
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errStore("unlock account", err)
	}

	d.logger.InfoContext(ctx, "account unlocked", "account_id", id.String())
	return true, nil
}

// SearchQuery describes an account search. Zero values do not filter.
type SearchQuery struct {
	Email          string
	Handle         string
	Role           *Role
	Locked         *bool
	Professional   *bool
	RegisteredFrom *time.Time
	RegisteredTo   *time.Time

	// SortBy is one of email, nickname, created_at, updated_at, first_name,
	// last_name. Anything else sorts by created_at.
	SortBy string
	// Order is "asc" or "desc"; empty means "desc".
	Order string

	Skip  int
	Limit int
}

func (q SearchQuery) plan() (Filter, Sort, Page) {
	filter := Filter{
		Email:          strings.TrimSpace(q.Email),
		Handle:         strings.TrimSpace(q.Handle),
		Role:           q.Role,
		Locked:         q.Locked,
		Professional:   q.Professional,
		RegisteredFrom: q.RegisteredFrom,
		RegisteredTo:   q.RegisteredTo,
	}
	order := strings.ToLower(strings.TrimSpace(q.Order))
	sort := Sort{
		Field:      ParseSortField(q.SortBy),
		Descending: order == "" || order == "desc",
	}
	page := Page{Skip: max(q.Skip, 0), Limit: q.Limit}
	if page.Limit <= 0 {
		page.Limit = DefaultPageSize
	}
	return filter, sort, page
}

// Search returns the number of accounts matching q and the requested page.
//
// A store failure yields (0, empty): callers must read that as "unknown", not
// as "no accounts". The failure is logged and counted in SearchFailures.
func (d *Directory) Search(ctx context.Context, q SearchQuery) (int, []*Account) {
	ctx, span := tracer.Start(ctx, "account.search")
	defer span.End()

	filter, sort, page := q.plan()
	span.SetAttributes(
		attribute.String("search.sort", string(sort.Field)),
		attribute.Bool("search.descending", sort.Descending),
		attribute.Int("search.skip", page.Skip),
		attribute.Int("search.limit", page.Limit),
	)

	total, accounts, err := d.store.Scan(ctx, filter, sort, page)
	if err != nil {
		SearchFailures.Inc()
		span.RecordError(err)
		errutil.LogErrorContext(ctx, d.logger, "account search failed", errStore("scan accounts", err))
		return 0, []*Account{}
	}
	if accounts == nil {
		accounts = []*Account{}
	}
	return total, accounts
}

// List returns one page of accounts ordered by creation time, oldest first.
func (d *Directory) List(ctx context.Context, skip, limit int) ([]*Account, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	_, accounts, err := d.store.Scan(ctx, Filter{}, Sort{Field: SortCreatedAt},
		Page{Skip: max(skip, 0), Limit: limit})
	if err != nil {
		return nil, errStore("list accounts", err)
	}
	return accounts, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
