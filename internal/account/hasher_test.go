// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package account_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roster/roster/internal/account"
	"github.com/roster/roster/pkg/errutil"
)

var cheapParams = account.Argon2Params{Time: 1, Memory: 64, Threads: 1}

func TestArgon2idHasher_Hash(t *testing.T) {
	hasher := account.NewArgon2idHasher(cheapParams)

	t.Run("produces PHC string", func(t *testing.T) {
		hash, err := hasher.Hash("Password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$"))
		assert.Len(t, strings.Split(hash, "$"), 6)
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("SamePassword1")
		require.NoError(t, err)
		hash2, err := hasher.Hash("SamePassword1")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("does not contain the plaintext", func(t *testing.T) {
		hash, err := hasher.Hash("Visible123")
		require.NoError(t, err)
		assert.NotContains(t, hash, "Visible123")
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})
}

func TestArgon2idHasher_Verify(t *testing.T) {
	hasher := account.NewArgon2idHasher(cheapParams)

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("Correct123")
		require.NoError(t, err)

		ok, err := hasher.Verify("Correct123", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		hash, err := hasher.Hash("Correct123")
		require.NoError(t, err)

		ok, err := hasher.Verify("Wrong12345", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("digest made with other parameters still verifies", func(t *testing.T) {
		other := account.NewArgon2idHasher(account.Argon2Params{Time: 2, Memory: 128, Threads: 2})
		hash, err := other.Hash("Portable123")
		require.NoError(t, err)

		ok, err := hasher.Verify("Portable123", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	tests := []struct {
		name   string
		digest string
		msg    string
	}{
		{"not a PHC string", "not-a-valid-hash", "invalid hash format"},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", "unsupported hash algorithm"},
		{"wrong version", "$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$aGFzaA", "unsupported argon2 version"},
		{"zero threads", "$argon2id$v=19$m=65536,t=1,p=0$c2FsdA$aGFzaA", "threads value 0 out of range"},
		{"zero iterations", "$argon2id$v=19$m=65536,t=0,p=4$c2FsdA$aGFzaA", "iterations value 0 out of range"},
		{"excessive iterations", "$argon2id$v=19$m=65536,t=4294967295,p=4$c2FsdA$aGFzaA", "iterations value"},
		{"zero memory", "$argon2id$v=19$m=0,t=1,p=4$c2FsdA$aGFzaA", "memory value 0 out of range"},
		{"oversized memory", "$argon2id$v=19$m=4294967295,t=1,p=4$c2FsdA$aGFzaA", "memory value 4294967295 out of range"},
		{"bad salt encoding", "$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA", ""},
		{"empty key", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$", "invalid hash key length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				ok  bool
				err error
			)
			require.NotPanics(t, func() { ok, err = hasher.Verify("password", tt.digest) })
			require.Error(t, err)
			assert.False(t, ok)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestArgon2idHasher_NeedsUpgrade(t *testing.T) {
	strong := account.NewArgon2idHasher(account.Argon2Params{Time: 2, Memory: 128, Threads: 2})
	weak := account.NewArgon2idHasher(cheapParams)

	weakHash, err := weak.Hash("Upgrade123")
	require.NoError(t, err)
	strongHash, err := strong.Hash("Upgrade123")
	require.NoError(t, err)

	assert.True(t, strong.NeedsUpgrade(weakHash))
	assert.False(t, strong.NeedsUpgrade(strongHash))
	assert.False(t, weak.NeedsUpgrade(strongHash))
	assert.True(t, weak.NeedsUpgrade("$2a$10$bcryptdigest"))
}

func TestNewArgon2idHasher_ZeroParamsUseDefaults(t *testing.T) {
	hasher := account.NewArgon2idHasher(account.Argon2Params{Time: 1, Memory: 64})
	hash, err := hasher.Hash("Defaults123")
	require.NoError(t, err)
	assert.Contains(t, hash, "m=64,t=1,p=4")
}
