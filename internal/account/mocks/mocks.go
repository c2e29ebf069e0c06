// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

// Package mocks provides testify mocks for the account package interfaces.
package mocks

import "github.com/stretchr/testify/mock"

// testingT is what the constructors need to assert expectations on cleanup.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

func register(t testingT, m *mock.Mock) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}
