// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/roster/roster/internal/account"
)

// MockStore is a mock for account.Store.
type MockStore struct {
	mock.Mock
}

var _ account.Store = (*MockStore)(nil)

// NewMockStore returns a MockStore whose expectations are asserted when t finishes.
func NewMockStore(t testingT) *MockStore {
	m := &MockStore{}
	register(t, &m.Mock)
	return m
}

func (m *MockStore) Get(ctx context.Context, key account.Key) (*account.Account, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockStore) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) Insert(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockStore) UpdateFields(ctx context.Context, id ulid.ULID, changes account.Changes) error {
	args := m.Called(ctx, id, changes)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, id ulid.ULID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Scan(ctx context.Context, filter account.Filter, sort account.Sort, page account.Page) (int, []*account.Account, error) {
	args := m.Called(ctx, filter, sort, page)
	var accounts []*account.Account
	if v := args.Get(1); v != nil {
		accounts = v.([]*account.Account)
	}
	return args.Int(0), accounts, args.Error(2)
}
