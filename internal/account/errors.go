// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package account

import (
	"errors"

	"github.com/samber/oops"
)

// Store sentinels. Store implementations wrap these so callers can use errors.Is.
var (
	// ErrNotFound is returned when a requested account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken is returned when an insert or update collides on email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrHandleTaken is returned when an insert or update collides on handle.
	ErrHandleTaken = errors.New("handle already taken")

	// ErrAdminExists is returned when an insert would create a second
	// bootstrap administrator.
	ErrAdminExists = errors.New("bootstrap administrator already exists")
)

// Error codes surfaced by the Directory.
const (
	CodeValidationFailed   = "ACCOUNT_VALIDATION_FAILED"
	CodeDuplicateEmail     = "ACCOUNT_DUPLICATE_EMAIL"
	CodeDuplicateHandle    = "ACCOUNT_DUPLICATE_HANDLE"
	CodeStoreFailed        = "ACCOUNT_STORE_FAILED"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeEmailNotVerified   = "AUTH_EMAIL_NOT_VERIFIED"
	CodeAccountLocked      = "AUTH_ACCOUNT_LOCKED"
)

func errValidation(field string, cause error) error {
	return oops.Code(CodeValidationFailed).
		With("field", field).
		Wrap(cause)
}

func errDuplicateEmail(email string) error {
	return oops.Code(CodeDuplicateEmail).
		With("email", email).
		Errorf("email already exists")
}

func errDuplicateHandle(handle string) error {
	return oops.Code(CodeDuplicateHandle).
		With("handle", handle).
		Errorf("handle already exists, please try a different one")
}

func errStore(operation string, cause error) error {
	return oops.Code(CodeStoreFailed).
		With("operation", operation).
		Wrap(cause)
}

func errInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("incorrect email or password")
}
