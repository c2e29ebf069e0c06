// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roster/roster/pkg/errutil"
)

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, deps *Deps, args ...string) (string, error) {
	t.Helper()
	configFile = ""
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmd := newRootCmd(deps)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	output, err := execute(t, nil, "--help")
	require.NoError(t, err)

	for _, sub := range []string{"migrate", "serve", "account", "seed"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestAccountCommand_HasExpectedSubcommands(t *testing.T) {
	output, err := execute(t, nil, "account", "--help")
	require.NoError(t, err)

	for _, sub := range []string{"create", "get", "list", "search", "count", "update", "login", "verify", "unlock", "reset-password", "delete"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantFlag string
	}{
		{
			name:     "separate value",
			args:     []string{"--config", "/path/to/config.yaml", "--help"},
			wantFlag: "/path/to/config.yaml",
		},
		{
			name:     "config flag with equals",
			args:     []string{"--config=/etc/roster.yaml", "--help"},
			wantFlag: "/etc/roster.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile = ""
			cmd := NewRootCmd()
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			assert.Equal(t, tt.wantFlag, configFile)
		})
	}
}

func TestRootCommand_VersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "test-version"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "test-version")
}

func TestCommands_RequireDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	for _, args := range [][]string{
		{"migrate", "status"},
		{"account", "count"},
		{"serve"},
	} {
		t.Run(args[0], func(t *testing.T) {
			_, err := execute(t, nil, args...)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			assert.Contains(t, err.Error(), "DATABASE_URL")
		})
	}
}

func TestCommands_RejectInvalidConfig(t *testing.T) {
	_, err := execute(t, nil, "account", "count", "--log-format=xml", "--database-url=postgres://localhost/roster")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "field", "log.format")
}

func TestCommands_InvalidDatabaseURL(t *testing.T) {
	_, err := execute(t, nil, "account", "count", "--database-url=postgres://%zz")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONFIG_INVALID")
}
