// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roster/roster/internal/account"
	"github.com/roster/roster/pkg/errutil"
)

const seedYAML = `
accounts:
  - email: admin@example.com
    nickname: admin
    password: Adm1nPassword
  - email: pro@example.com
    nickname: pro
    password: Pr0Password
    first_name: Grace
    is_professional: true
    verified: true
  - email: pending@example.com
    password: Pend1ngPassword
`

func TestParseSeedFile(t *testing.T) {
	t.Run("accounts", func(t *testing.T) {
		seeds, err := parseSeedFile(strings.NewReader(seedYAML))
		require.NoError(t, err)
		require.Len(t, seeds, 3)
		assert.Equal(t, "pro@example.com", seeds[1].Email)
		assert.Equal(t, "Grace", seeds[1].FirstName)
		assert.True(t, seeds[1].IsProfessional)
		assert.True(t, seeds[1].Verified)
		assert.Empty(t, seeds[2].Nickname)
	})

	t.Run("empty file", func(t *testing.T) {
		seeds, err := parseSeedFile(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, seeds)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := parseSeedFile(strings.NewReader("accounts:\n  - email: a@example.com\n    role: ADMIN\n"))
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SEED_INVALID")
	})
}

func TestSeedAccounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seeds, err := parseSeedFile(strings.NewReader(seedYAML))
	require.NoError(t, err)

	summary, err := seedAccounts(ctx, env.cmd, env.dir, seeds)
	require.NoError(t, err)
	assert.Equal(t, seedSummary{Created: 3}, summary)
	assert.Contains(t, env.out.String(), "Created admin@example.com (ADMIN)")
	assert.Contains(t, env.out.String(), "Created pro@example.com (AUTHENTICATED)")
	assert.Contains(t, env.out.String(), "Created pending@example.com (ANONYMOUS)")

	pro, err := env.dir.GetByEmail(ctx, "pro@example.com")
	require.NoError(t, err)
	require.NotNil(t, pro)
	assert.True(t, pro.EmailVerified)
	assert.True(t, pro.IsProfessional)
	assert.Empty(t, pro.VerificationToken)

	_, err = env.dir.Login(ctx, "pro@example.com", "Pr0Password")
	require.NoError(t, err, "verified seed accounts can log in")

	t.Run("rerun skips existing accounts", func(t *testing.T) {
		env.out.Reset()
		summary, err := seedAccounts(ctx, env.cmd, env.dir, seeds)
		require.NoError(t, err)
		assert.Equal(t, seedSummary{Skipped: 3}, summary)

		n, err := env.dir.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})
}

func TestSeedAccounts_StopsOnInvalidAccount(t *testing.T) {
	env := newTestEnv(t)
	seeds := []seedAccount{
		{Email: "ok@example.com", Password: testPassword},
		{Email: "bad@example.com", Password: "weak"},
		{Email: "never@example.com", Password: testPassword},
	}

	summary, err := seedAccounts(context.Background(), env.cmd, env.dir, seeds)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, account.CodeValidationFailed)
	assert.Equal(t, 1, summary.Created)

	n, err := env.dir.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSeedCommand_FileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, nil, "seed", "--file", filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SEED_FAILED")
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seed.yaml")
		require.NoError(t, os.WriteFile(path, []byte("accounts: {"), 0o600))
		_, err := execute(t, nil, "seed", "--file", path)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SEED_INVALID")
	})

	t.Run("file flag is required", func(t *testing.T) {
		_, err := execute(t, nil, "seed")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file")
	})
}
