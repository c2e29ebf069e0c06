// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

// Package account provides the user-account directory and authentication core.
//
// # Directory
//
// Directory is the single entry point for account operations:
//   - Create - registers an account; the first one becomes the administrator
//   - Login - checks credentials and maintains the failure counter and lock
//   - VerifyEmail, ResetPassword, Unlock - account state transitions
//   - GetByID, GetByEmail, GetByHandle, Search, List, Count - reads
//   - Update, Delete - profile maintenance
//
// Errors are oops errors carrying one of the Code* constants. Absent accounts
// are reported as a nil result rather than an error.
//
// # Storage
//
// Directory is written against the Store interface. The postgres subpackage
// provides the production implementation and accounttest an in-memory one.
// Stores wrap ErrNotFound, ErrEmailTaken, ErrHandleTaken and ErrAdminExists so
// the Directory can classify conflicts with errors.Is.
package account
