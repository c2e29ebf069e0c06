// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roster/roster/internal/account"
	"github.com/roster/roster/pkg/errutil"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	file    string
	timeout time.Duration
}

// seedFile is the YAML document read by the seed command.
type seedFile struct {
	Accounts []seedAccount `yaml:"accounts"`
}

// seedAccount describes one account to create. Verified accounts have their
// email confirmed immediately after creation.
type seedAccount struct {
	Email          string `yaml:"email"`
	Nickname       string `yaml:"nickname"`
	Password       string `yaml:"password"`
	FirstName      string `yaml:"first_name"`
	LastName       string `yaml:"last_name"`
	Bio            string `yaml:"bio"`
	GitHubURL      string `yaml:"github_profile_url"`
	LinkedInURL    string `yaml:"linkedin_profile_url"`
	IsProfessional bool   `yaml:"is_professional"`
	Verified       bool   `yaml:"verified"`
}

func (s seedAccount) newAccount() account.NewAccount {
	return account.NewAccount{
		Email:       s.Email,
		Handle:      s.Nickname,
		Password:    s.Password,
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		Bio:         s.Bio,
		GitHubURL:   s.GitHubURL,
		LinkedInURL: s.LinkedInURL,
	}
}

// seedSummary counts the outcome of a seed run.
type seedSummary struct {
	Created int
	Skipped int
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	return newSeedCmd(nil)
}

func newSeedCmd(deps *Deps) *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create accounts from a YAML file",
		Long: `Creates the accounts listed in a YAML file. Accounts whose email is
already registered are skipped, so the command can be run repeatedly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, deps, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.file, "file", "", "YAML file listing accounts")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSeed(cmd *cobra.Command, deps *Deps, cfg *seedConfig) error {
	f, err := os.Open(cfg.file)
	if err != nil {
		return oops.Code("SEED_FAILED").With("file", cfg.file).Wrap(err)
	}
	defer func() { _ = f.Close() }()

	seeds, err := parseSeedFile(f)
	if err != nil {
		return err
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()
	cmd.SetContext(ctx)

	return withDirectory(cmd, deps, func(ctx context.Context, dir *account.Directory) error {
		summary, err := seedAccounts(ctx, cmd, dir, seeds)
		if err != nil {
			return err
		}
		cmd.Printf("Seeding complete: %d created, %d skipped\n", summary.Created, summary.Skipped)
		return nil
	})
}

func parseSeedFile(r io.Reader) ([]seedAccount, error) {
	var doc seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, oops.Code("SEED_INVALID").With("operation", "decode seed file").Wrap(err)
	}
	return doc.Accounts, nil
}

// seedAccounts creates each account in order. Duplicates are skipped; any
// other failure stops the run.
func seedAccounts(ctx context.Context, cmd *cobra.Command, dir *account.Directory, seeds []seedAccount) (seedSummary, error) {
	var summary seedSummary
	for i, s := range seeds {
		acc, err := dir.Create(ctx, s.newAccount())
		switch code := errutil.Code(err); {
		case err == nil:
		case code == account.CodeDuplicateEmail, code == account.CodeDuplicateHandle:
			cmd.Printf("Skipping %s: already registered\n", s.Email)
			summary.Skipped++
			continue
		default:
			return summary, oops.Code("SEED_FAILED").
				With("index", i).
				With("email", s.Email).
				Wrap(err)
		}

		if s.Verified && !acc.EmailVerified {
			ok, err := dir.VerifyEmail(ctx, acc.ID, acc.VerificationToken)
			if err == nil && !ok {
				err = oops.Errorf("verification token rejected")
			}
			if err != nil {
				return summary, oops.Code("SEED_FAILED").With("email", s.Email).Wrap(err)
			}
			if acc, err = refresh(ctx, dir, acc.ID); err != nil {
				return summary, oops.Code("SEED_FAILED").With("email", s.Email).Wrap(err)
			}
		}
		if s.IsProfessional {
			pro := true
			if _, err := dir.Update(ctx, acc.ID, account.AccountUpdate{IsProfessional: &pro}); err != nil {
				return summary, oops.Code("SEED_FAILED").With("email", s.Email).Wrap(err)
			}
			if acc, err = refresh(ctx, dir, acc.ID); err != nil {
				return summary, oops.Code("SEED_FAILED").With("email", s.Email).Wrap(err)
			}
		}

		cmd.Printf("Created %s (%s)\n", acc.Email, acc.Role)
		summary.Created++
	}
	return summary, nil
}

func refresh(ctx context.Context, dir *account.Directory, id ulid.ULID) (*account.Account, error) {
	acc, err := dir.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, errAccountNotFound(id.String())
	}
	return acc, nil
}
