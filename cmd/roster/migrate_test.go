// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roster/roster/pkg/errutil"
)

type fakeMigrator struct {
	version  uint
	dirty    bool
	applied  []uint
	pending  []uint
	upErr    error
	forced   *int
	upCalled bool
	closed   bool
}

func (m *fakeMigrator) Up() error {
	m.upCalled = true
	if m.upErr != nil {
		return m.upErr
	}
	m.applied = append(m.applied, m.pending...)
	if n := len(m.applied); n > 0 {
		m.version = m.applied[n-1]
	}
	m.pending = nil
	return nil
}

func (m *fakeMigrator) Down() error {
	m.pending = append(m.applied, m.pending...)
	m.applied = nil
	m.version = 0
	return nil
}

func (m *fakeMigrator) Steps(int) error { return nil }

func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, m.dirty, nil }

func (m *fakeMigrator) Force(version int) error {
	m.forced = &version
	m.dirty = false
	return nil
}

func (m *fakeMigrator) PendingMigrations() ([]uint, error) { return m.pending, nil }

func (m *fakeMigrator) AppliedMigrations() ([]uint, error) { return m.applied, nil }

func (m *fakeMigrator) Close() error {
	m.closed = true
	return nil
}

func migratorDeps(m *fakeMigrator, gotURL *string) *Deps {
	return &Deps{
		MigratorFactory: func(databaseURL string) (Migrator, error) {
			if gotURL != nil {
				*gotURL = databaseURL
			}
			return m, nil
		},
	}
}

const testDatabaseURL = "--database-url=postgres://roster@localhost/roster"

func TestMigrate_Up(t *testing.T) {
	m := &fakeMigrator{pending: []uint{1, 2}}
	var url string

	output, err := execute(t, migratorDeps(m, &url), "migrate", "up", testDatabaseURL)
	require.NoError(t, err)

	assert.True(t, m.upCalled)
	assert.True(t, m.closed, "migrator should be closed")
	assert.Equal(t, "postgres://roster@localhost/roster", url)
	assert.Contains(t, output, "Running migrations...")
	assert.Contains(t, output, "Migrations completed successfully (version 2)")
}

func TestMigrate_DefaultsToUp(t *testing.T) {
	m := &fakeMigrator{pending: []uint{1}}

	_, err := execute(t, migratorDeps(m, nil), "migrate", testDatabaseURL)
	require.NoError(t, err)
	assert.True(t, m.upCalled)
}

func TestMigrate_UpFailure(t *testing.T) {
	m := &fakeMigrator{upErr: errors.New("syntax error at or near")}

	_, err := execute(t, migratorDeps(m, nil), "migrate", "up", testDatabaseURL)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_FAILED")
	assert.True(t, m.closed)
}

func TestMigrate_FactoryFailure(t *testing.T) {
	deps := &Deps{
		MigratorFactory: func(string) (Migrator, error) {
			return nil, errors.New("connection refused")
		},
	}

	_, err := execute(t, deps, "migrate", "status", testDatabaseURL)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
}

func TestMigrate_Down(t *testing.T) {
	m := &fakeMigrator{version: 2, applied: []uint{1, 2}}

	output, err := execute(t, migratorDeps(m, nil), "migrate", "down", testDatabaseURL)
	require.NoError(t, err)
	assert.Empty(t, m.applied)
	assert.Contains(t, output, "All migrations rolled back")
}

func TestMigrate_Status(t *testing.T) {
	m := &fakeMigrator{version: 1, dirty: true, applied: []uint{1}, pending: []uint{2, 99}}

	output, err := execute(t, migratorDeps(m, nil), "migrate", "status", testDatabaseURL)
	require.NoError(t, err)

	assert.Contains(t, output, "Schema version: 1 (dirty)")
	assert.Contains(t, output, "000001_accounts")
	assert.Contains(t, output, "000002_account_search_indexes")
	assert.Contains(t, output, "000099", "unknown versions fall back to the number")
}

func TestMigrate_StatusNothingApplied(t *testing.T) {
	m := &fakeMigrator{pending: []uint{1, 2}}

	output, err := execute(t, migratorDeps(m, nil), "migrate", "status", testDatabaseURL)
	require.NoError(t, err)
	assert.Contains(t, output, "Schema version: 0 (clean)")
	assert.Contains(t, output, "Applied: none")
}

func TestMigrate_Force(t *testing.T) {
	m := &fakeMigrator{version: 2, dirty: true}

	output, err := execute(t, migratorDeps(m, nil), "migrate", "force", "1", testDatabaseURL)
	require.NoError(t, err)
	require.NotNil(t, m.forced)
	assert.Equal(t, 1, *m.forced)
	assert.Contains(t, output, "Forced schema version to 1")
}

func TestMigrate_ForceRejectsBadVersion(t *testing.T) {
	m := &fakeMigrator{}

	_, err := execute(t, migratorDeps(m, nil), "migrate", "force", "latest", testDatabaseURL)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
	assert.Nil(t, m.forced)
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{" 2 ", 2, false},
		{"-1", -1, false},
		{"", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseForceVersion(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
