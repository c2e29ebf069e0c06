// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/roster/roster/internal/account"
)

// MockNotifier is a mock for account.Notifier.
type MockNotifier struct {
	mock.Mock
}

var _ account.Notifier = (*MockNotifier)(nil)

// NewMockNotifier returns a MockNotifier whose expectations are asserted when t
// finishes.
func NewMockNotifier(t testingT) *MockNotifier {
	m := &MockNotifier{}
	register(t, &m.Mock)
	return m
}

func (m *MockNotifier) SendVerification(ctx context.Context, acc *account.Account, token string) error {
	args := m.Called(ctx, acc, token)
	return args.Error(0)
}
