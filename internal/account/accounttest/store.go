// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

// Package accounttest provides in-memory collaborators for testing code that
// depends on the account package.
package accounttest

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/roster/roster/internal/account"
)

// MemStore is an account.Store backed by a map. It enforces the same
// uniqueness rules as the PostgreSQL store and hands out copies, so callers
// can never mutate stored state by accident.
type MemStore struct {
	mu       sync.Mutex
	accounts map[ulid.ULID]*account.Account
	now      func() time.Time

	failNext error
}

// NewMemStore creates an empty store using time.Now for timestamps.
func NewMemStore() *MemStore {
	return &MemStore{
		accounts: make(map[ulid.ULID]*account.Account),
		now:      time.Now,
	}
}

// SetClock replaces the timestamp source.
func (s *MemStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailNext makes the next store call return err.
func (s *MemStore) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *MemStore) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

// Get implements account.Store.
func (s *MemStore) Get(_ context.Context, key account.Key) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	if key.Field == account.KeyID {
		id, err := ulid.Parse(key.Value)
		if err != nil {
			return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", key.Value).Wrap(account.ErrNotFound)
		}
		if a, ok := s.accounts[id]; ok {
			return a.Clone(), nil
		}
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", key.Value).Wrap(account.ErrNotFound)
	}

	for _, a := range s.accounts {
		if matchesKey(a, key) {
			return a.Clone(), nil
		}
	}
	return nil, oops.Code("ACCOUNT_NOT_FOUND").With(string(key.Field), key.Value).Wrap(account.ErrNotFound)
}

func matchesKey(a *account.Account, key account.Key) bool {
	switch key.Field {
	case account.KeyEmail:
		return a.Email == account.NormalizeEmail(key.Value)
	case account.KeyHandle:
		return strings.EqualFold(a.Handle, key.Value)
	default:
		return false
	}
}

// Scan implements account.Store.
func (s *MemStore) Scan(_ context.Context, filter account.Filter, sort account.Sort, page account.Page) (int, []*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return 0, nil, err
	}

	matched := make([]*account.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if matchesFilter(a, filter) {
			matched = append(matched, a)
		}
	}

	slices.SortFunc(matched, func(a, b *account.Account) int {
		c := compareBy(a, b, sort.Field)
		if c == 0 {
			c = a.ID.Compare(b.ID)
		}
		if sort.Descending {
			return -c
		}
		return c
	})

	total := len(matched)
	start := min(max(page.Skip, 0), total)
	end := total
	if page.Limit > 0 {
		end = min(start+page.Limit, total)
	}

	out := make([]*account.Account, 0, end-start)
	for _, a := range matched[start:end] {
		out = append(out, a.Clone())
	}
	return total, out, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func matchesFilter(a *account.Account, f account.Filter) bool {
	switch {
	case f.Email != "" && !containsFold(a.Email, f.Email):
		return false
	case f.Handle != "" && !containsFold(a.Handle, f.Handle):
		return false
	case f.Role != nil && a.Role != *f.Role:
		return false
	case f.Locked != nil && a.Locked != *f.Locked:
		return false
	case f.Professional != nil && a.IsProfessional != *f.Professional:
		return false
	case f.RegisteredFrom != nil && a.CreatedAt.Before(*f.RegisteredFrom):
		return false
	case f.RegisteredTo != nil && a.CreatedAt.After(*f.RegisteredTo):
		return false
	}
	return true
}

func compareBy(a, b *account.Account, field account.SortField) int {
	switch field {
	case account.SortEmail:
		return cmp.Compare(a.Email, b.Email)
	case account.SortHandle:
		return cmp.Compare(strings.ToLower(a.Handle), strings.ToLower(b.Handle))
	case account.SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case account.SortFirstName:
		return cmp.Compare(a.FirstName, b.FirstName)
	case account.SortLastName:
		return cmp.Compare(a.LastName, b.LastName)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// Insert implements account.Store.
func (s *MemStore) Insert(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}

	if err := s.checkUnique(ulid.ULID{}, a.Email, a.Handle); err != nil {
		return err
	}
	if a.Role == account.RoleAdmin {
		for _, existing := range s.accounts {
			if existing.Role == account.RoleAdmin {
				return oops.Code("ACCOUNT_ADMIN_EXISTS").Wrap(account.ErrAdminExists)
			}
		}
	}

	if a.ID.IsZero() {
		a.ID = ulid.Make()
	}
	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.accounts[a.ID] = a.Clone()
	return nil
}

func (s *MemStore) checkUnique(self ulid.ULID, email, handle string) error {
	for id, existing := range s.accounts {
		if id == self {
			continue
		}
		if email != "" && existing.Email == email {
			return oops.Code("ACCOUNT_EMAIL_TAKEN").With("email", email).Wrap(account.ErrEmailTaken)
		}
		if handle != "" && strings.EqualFold(existing.Handle, handle) {
			return oops.Code("ACCOUNT_HANDLE_TAKEN").With("handle", handle).Wrap(account.ErrHandleTaken)
		}
	}
	return nil
}

// UpdateFields implements account.Store.
func (s *MemStore) UpdateFields(_ context.Context, id ulid.ULID, changes account.Changes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}

	a, ok := s.accounts[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(account.ErrNotFound)
	}

	var email, handle string
	if changes.Email != nil {
		email = *changes.Email
	}
	if changes.Handle != nil {
		handle = *changes.Handle
	}
	if err := s.checkUnique(id, email, handle); err != nil {
		return err
	}

	changes.Apply(a)
	a.UpdatedAt = s.now()
	return nil
}

// Delete implements account.Store.
func (s *MemStore) Delete(_ context.Context, id ulid.ULID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return false, err
	}

	if _, ok := s.accounts[id]; !ok {
		return false, nil
	}
	delete(s.accounts, id)
	return true, nil
}

// Count implements account.Store.
func (s *MemStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return 0, err
	}
	return len(s.accounts), nil
}

var _ account.Store = (*MemStore)(nil)
