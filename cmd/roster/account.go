// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roster/roster/internal/account"
)

// CodeAccountNotFound is returned when a command names an unknown account.
const CodeAccountNotFound = "ACCOUNT_NOT_FOUND"

// NewAccountCmd creates the account command group.
func NewAccountCmd() *cobra.Command {
	return newAccountCmd(nil)
}

func newAccountCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage user accounts",
		Long: `Create, inspect and maintain user accounts. Commands that take an ACCOUNT
argument accept an account ID, an email address or a nickname.`,
	}

	cmd.AddCommand(
		newAccountCreateCmd(deps),
		newAccountGetCmd(deps),
		newAccountListCmd(deps),
		newAccountSearchCmd(deps),
		newAccountCountCmd(deps),
		newAccountUpdateCmd(deps),
		newAccountLoginCmd(deps),
		newAccountVerifyCmd(deps),
		newAccountUnlockCmd(deps),
		newAccountResetPasswordCmd(deps),
		newAccountDeleteCmd(deps),
	)
	return cmd
}

// withDirectory opens the application for the duration of run.
func withDirectory(cmd *cobra.Command, deps *Deps, run func(ctx context.Context, dir *account.Directory) error) error {
	a, err := openApp(cmd, deps)
	if err != nil {
		return err
	}
	defer a.Close()
	return run(cmd.Context(), a.dir)
}

func newAccountCreateCmd(deps *Deps) *cobra.Command {
	var (
		in            account.NewAccount
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new account",
		Long: `Register a new account. The first account ever created becomes the
verified administrator; later accounts are sent a verification link.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd, in.Password, passwordStdin)
			if err != nil {
				return err
			}
			in.Password = password
			return withDirectory(cmd, deps, func(ctx context.Context, dir *account.Directory) error {
				return runAccountCreate(ctx, cmd, dir, in)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Email, "email", "", "email address")
	f.StringVar(&in.Handle, "nickname", "", "nickname (generated when empty)")
	f.StringVar(&in.Password, "password", "", "password")
	f.BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	f.StringVar(&in.FirstName, "first-name", "", "first name")
	f.StringVar(&in.LastName, "last-name", "", "last name")
	f.StringVar(&in.Bio, "bio", "", "short biography")
	f.StringVar(&in.ProfilePictureURL, "picture-url", "", "profile picture URL")
	f.StringVar(&in.LinkedInURL, "linkedin-url", "", "LinkedIn profile URL")
	f.StringVar(&in.GitHubURL, "github-url", "", "GitHub profile URL")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func runAccountCreate(ctx context.Context, cmd *cobra.Command, dir *account.Directory, in account.NewAccount) error {
	acc, err := dir.Create(ctx, in)
	if err != nil {
		return err
	}
	return writeJSON(cmd, newAccountView(acc))
}

func newAccountGetCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "get ACCOUNT",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirectory(cmd, deps, func(ctx context.Context, dir *account.Directory) error {
				acc, err := resolveAccount(ctx, dir, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, newAccountView(acc))
			})
		},
	}
}

func newAccountListCmd(deps *Deps) *cobra.Command {
	var skip, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts in registration order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDirectory(cmd, deps, func(ctx context.Context, dir *account.Directory) error {
				accounts, err := dir.List(ctx, skip, limit)
				if err != nil {
					return err
				}
				return writeJSON(cmd, newAccountViews(accounts))
			})
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "accounts to skip")
	cmd.Flags().IntVar(&limit, "limit", account.DefaultPageSize, "maximum accounts to return")
	return cmd
}

// searchFlags holds the raw search command flags.
type searchFlags struct {
	email        string
	nickname     string
	role         string
	locked       bool
	professional bool
	from         string
	to           string
	sortBy       string
	order        string
	skip         int
	limit        int
}

func newAccountSearchCmd(deps *Deps) *cobra.Command {
	sf := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search accounts",
		Long: `Search accounts by email and nickname substring, role, lock and
professional status, and registration date. Results are paginated.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := sf.query(cmd)
			if err != nil {
				return err
			}
			return withDirectory(cmd, deps, func(ctx context.Context, dir *account.Directory) error {
				return runAccountSearch(ctx, cmd, dir, q)
			})
		},
	}

	sf.register(cmd.Flags())
	return cmd
}

func (sf *searchFlags) register(f *pflag.FlagSet) {
	f.StringVar(&sf.email, "email", "", "email contains (case-insensitive)")
	f.StringVar(&sf.nickname, "nickname", "", "nickname contains (case-insensitive)")
	f.StringVar(&sf.role, "role", "", "role (ANONYMOUS, AUTHENTICATED, MANAGER, ADMIN)")
	f.BoolVar(&sf.locked, "locked", false, "lock status")
	f.BoolVar(&sf.professional, "professional", false, "professional status")
	f.StringVar(&sf.from, "from", "", "registered on or after (RFC 3339 or YYYY-MM-DD)")
	f.StringVar(&sf.to, "to", "", "registered on or before (RFC 3339 or YYYY-MM-DD)")
	f.StringVar(&sf.sortBy, "sort", string(account.SortCreatedAt), "sort field")
	f.StringVar(&sf.order, "order", "desc", "sort order (asc or desc)")
	f.IntVar(&sf.skip, "skip", 0, "results to skip")
	f.IntVar(&sf.limit, "limit", account.DefaultPageSize, "maximum results to return")
}

// query converts the flags into a search query. Boolean filters apply only
// when given explicitly.
func (sf *searchFlags) query(cmd *cobra.Command) (account.SearchQuery, error) {
	q := account.SearchQuery{
		Email:  sf.email,
		Handle: sf.nickname,
		SortBy: sf.sortBy,
		Order:  sf.order,
		Skip:   sf.skip,
		Limit:  sf.limit,
	}
	if sf.role != "" {
		role, ok := account.ParseRole(sf.role)
		if !ok {
			return q, oops.Code("INVALID_ARGUMENT").With("role", sf.role).Errorf("unknown role %q", sf.role)
		}
		q.Role = &role
	}
	if cmd.Flags().Changed("locked") {
		q.Locked = &sf.locked
	}
	if cmd.Flags().Changed("professional") {
		q.Professional = &sf.professional
	}
	if sf.from != "" {
		from, err := parseDate(sf.from, false)
		if err != nil {
			return q, err
		}
		q.RegisteredFrom = &from
	}
	if sf.to != "" {
		to, err := parseDate(sf.to, true)
		if err != nil {
			return q, err
		}
		q.RegisteredTo = &to
	}
	return q, nil
}

type searchResult struct {
	Total    int           `json:"total"`
	Accounts []accountView `json:"accounts"`
}

func runAccountSearch(ctx context.Context, cmd *cobra.Command, dir *account.Directory, q account.SearchQuery) error {
	total, accounts := dir.Search(ctx, q)
	return writeJSON(cmd, searchResult{Total: total, Accounts: newAccountViews(accounts)})
}

func newAccountCountCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDirectory(cmd, deps, func(ctx context.Context, dir *account.Directory) error {
				n, err := dir.Count(ctx)
				if err != nil {
					return err
				}
				cmd.Println(n)
				return nil
			})
		},
	}
}

func newAccountUpdateCmd(deps *Deps) *cobra.Command {
	var (
		email, nickname, password, firstName, lastName string
		bio, pictureURL, linkedInURL, gitHubURL        string
		professional                                   bool
	)
	cmd := &cobra.Command{
		Use:   "update ACCOUNT",
		Short: "Change account details",
		Long:  `Change account details. Only the flags given are written.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			str := func(name string, v *string) *string {
				if f.Changed(name) {
					return v
				}
				return nil
			}
			in := account.AccountUpdate{
				Email:             str("email", &email),
				Handle:            str("nickname", &nickname),
				Password:          str("password", &password),
				FirstName:         str("first-name", &firstName),
				LastName:          str("last-name", &lastName),
				Bio:               str("bio", &bio),
				ProfilePictureURL: str("picture-url", &pictureURL),
				LinkedInURL:       str("linkedin-url", &linkedInURL),
				GitHubURL:         str("github-url", &gitHubURL),
			}
			if f.Changed("professional") {
				in.IsProfessional = &professional
			}
			return withDirectory(cmd, deps, func(ctx context.Context, dir *account.Directory) error {
				return runAccountUpdate(ctx, cmd, dir, args[0], in)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&email, "email", "", "new email address")
	f.StringVar(&nickname, "nickname", "", "new nickname")
	f.StringVar(&password, "password", "", "new password")
	f.StringVar(&firstName, "first-name", "", "first name")
	f.StringVar(&lastName, "last-name", "", "last name")
	f.StringVar(&bio, "bio", "", "short biography")
	f.StringVar(&pictureURL, "picture-url", "", "profile picture URL")
	f.StringVar(&linkedInURL, "linkedin-url", "", "LinkedIn profile URL")
	f.StringVar(&gitHubURL, "github-url", "", "GitHub profile URL")
	f.BoolVar(&professional, "professional", false, "professional status")
	return cmd
}

func runAccountUpdate(ctx context.Context, cmd *cobra.Command, dir *account.Directory, ref string, in account.AccountUpdate) error {
	acc, err := resolveAccount(ctx, dir, ref)
	if err != nil {
		return err
	}
	updated, err := dir.Update(ctx, acc.ID, in)
	if err != nil {
		return err
	}
	if updated == nil {
		return errAccountNotFound(ref)
	}
	return writeJSON(cmd, newAccountView(updated))
}

func newAccountLoginCmd(deps *Deps) *cobra.Command {
	var (
		email, password string
		passwordStdin   bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check credentials",
		Long: `Check an email and password the way an interactive login does. Failed
attempts count towards the account lock.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := readPassword(cmd, password, passwordStdin)
			if err != nil {
				return err
			}
			return withDirectory(cmd, deps, func(ctx context.Context, dir *account.Directory) error {
				acc, err := dir.Login(ctx, email, pw)
				if err != nil {
					return err
				}
				return writeJSON(cmd, newAccountView(acc))
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAccountVerifyCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "verify ACCOUNT TOKEN",
		Short: "Confirm an email address with its verification token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirectory(cmd, deps, func(ctx context.Context, dir *account.Directory) error {
				return runAccountAction(ctx, cmd, dir, args[0], "verified", func(id ulid.ULID) (bool, error) {
					return dir.VerifyEmail(ctx, id, args[1])
				})
			})
		},
	}
}

func newAccountUnlockCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock ACCOUNT",
		Short: "Unlock an account and clear its failed login count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirectory(cmd, deps, func(ctx context.Context, dir *account.Directory) error {
				return runAccountAction(ctx, cmd, dir, args[0], "unlocked", func(id ulid.ULID) (bool, error) {
					return dir.Unlock(ctx, id)
				})
			})
		},
	}
}

func newAccountResetPasswordCmd(deps *Deps) *cobra.Command {
	var (
		password      string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "reset-password ACCOUNT",
		Short: "Set a new password and unlock the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password, passwordStdin)
			if err != nil {
				return err
			}
			return withDirectory(cmd, deps, func(ctx context.Context, dir *account.Directory) error {
				return runAccountAction(ctx, cmd, dir, args[0], "password reset", func(id ulid.ULID) (bool, error) {
					return dir.ResetPassword(ctx, id, pw)
				})
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func newAccountDeleteCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ACCOUNT",
		Short: "Permanently delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirectory(cmd, deps, func(ctx context.Context, dir *account.Directory) error {
				return runAccountAction(ctx, cmd, dir, args[0], "deleted", func(id ulid.ULID) (bool, error) {
					return dir.Delete(ctx, id)
				})
			})
		},
	}
}

// runAccountAction resolves ref and applies a state transition, reporting
// whether it took effect.
func runAccountAction(ctx context.Context, cmd *cobra.Command, dir *account.Directory, ref, done string, action func(ulid.ULID) (bool, error)) error {
	acc, err := resolveAccount(ctx, dir, ref)
	if err != nil {
		return err
	}
	ok, err := action(acc.ID)
	if err != nil {
		return err
	}
	if !ok {
		return oops.Code("ACCOUNT_UNCHANGED").
			With("account_id", acc.ID.String()).
			Errorf("account %s was not %s", acc.ID, done)
	}
	cmd.Printf("Account %s %s\n", acc.ID, done)
	return nil
}

// resolveAccount finds an account by ID, email or nickname.
func resolveAccount(ctx context.Context, dir *account.Directory, ref string) (*account.Account, error) {
	ref = strings.TrimSpace(ref)

	var (
		acc *account.Account
		err error
	)
	if id, parseErr := ulid.ParseStrict(ref); parseErr == nil {
		acc, err = dir.GetByID(ctx, id)
	} else if strings.Contains(ref, "@") {
		acc, err = dir.GetByEmail(ctx, ref)
	} else {
		acc, err = dir.GetByHandle(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, errAccountNotFound(ref)
	}
	return acc, nil
}

func errAccountNotFound(ref string) error {
	return oops.Code(CodeAccountNotFound).With("account", ref).Errorf("account %q not found", ref)
}

// readPassword returns flagValue, or the first line of stdin when fromStdin is set.
func readPassword(cmd *cobra.Command, flagValue string, fromStdin bool) (string, error) {
	if !fromStdin {
		return flagValue, nil
	}
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", oops.Code("INVALID_ARGUMENT").With("operation", "read password").Wrap(err)
		}
		return "", oops.Code("INVALID_ARGUMENT").Errorf("no password on stdin")
	}
	return strings.TrimRight(scanner.Text(), "\r\n"), nil
}

// parseDate accepts RFC 3339 timestamps or plain dates. A plain date used as
// an upper bound covers the whole day.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, oops.Code("INVALID_ARGUMENT").With("date", s).Wrap(err)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// accountView is the printed form of an account. Credentials are never shown.
type accountView struct {
	ID                          string     `json:"id"`
	Email                       string     `json:"email"`
	Nickname                    string     `json:"nickname"`
	Role                        string     `json:"role"`
	EmailVerified               bool       `json:"email_verified"`
	Locked                      bool       `json:"locked"`
	FailedLoginAttempts         int        `json:"failed_login_attempts"`
	FirstName                   string     `json:"first_name,omitempty"`
	LastName                    string     `json:"last_name,omitempty"`
	Bio                         string     `json:"bio,omitempty"`
	ProfilePictureURL           string     `json:"profile_picture_url,omitempty"`
	LinkedInURL                 string     `json:"linkedin_profile_url,omitempty"`
	GitHubURL                   string     `json:"github_profile_url,omitempty"`
	IsProfessional              bool       `json:"is_professional"`
	ProfessionalStatusUpdatedAt *time.Time `json:"professional_status_updated_at,omitempty"`
	CreatedAt                   time.Time  `json:"created_at"`
	UpdatedAt                   time.Time  `json:"updated_at"`
	LastLoginAt                 *time.Time `json:"last_login_at,omitempty"`
}

func newAccountView(a *account.Account) accountView {
	return accountView{
		ID:                          a.ID.String(),
		Email:                       a.Email,
		Nickname:                    a.Handle,
		Role:                        string(a.Role),
		EmailVerified:               a.EmailVerified,
		Locked:                      a.Locked,
		FailedLoginAttempts:         a.FailedLoginAttempts,
		FirstName:                   a.FirstName,
		LastName:                    a.LastName,
		Bio:                         a.Bio,
		ProfilePictureURL:           a.ProfilePictureURL,
		LinkedInURL:                 a.LinkedInURL,
		GitHubURL:                   a.GitHubURL,
		IsProfessional:              a.IsProfessional,
		ProfessionalStatusUpdatedAt: a.ProfessionalStatusUpdatedAt,
		CreatedAt:                   a.CreatedAt,
		UpdatedAt:                   a.UpdatedAt,
		LastLoginAt:                 a.LastLoginAt,
	}
}

func newAccountViews(accounts []*account.Account) []accountView {
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, newAccountView(a))
	}
	return views
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}
	return nil
}
