// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package accounttest

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/roster/roster/internal/account"
)

// Verification is one captured verification message.
type Verification struct {
	AccountID ulid.ULID
	Email     string
	Token     string
}

// RecordingNotifier captures verification messages instead of sending them.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []Verification

	// Err, when non-nil, is returned from every send after recording it.
	Err error
}

// SendVerification implements account.Notifier.
func (n *RecordingNotifier) SendVerification(_ context.Context, a *account.Account, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Verification{AccountID: a.ID, Email: a.Email, Token: token})
	return n.Err
}

// Sent returns a copy of the captured messages.
func (n *RecordingNotifier) Sent() []Verification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Verification, len(n.sent))
	copy(out, n.sent)
	return out
}

// TokenFor returns the last token sent to the account, if any.
func (n *RecordingNotifier) TokenFor(id ulid.ULID) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].AccountID == id {
			return n.sent[i].Token, true
		}
	}
	return "", false
}

// FastHasher returns an argon2id hasher with minimal cost parameters.
// Never use it outside tests.
func FastHasher() *account.Argon2idHasher {
	return account.NewArgon2idHasher(account.Argon2Params{Time: 1, Memory: 64, Threads: 1})
}

var _ account.Notifier = (*RecordingNotifier)(nil)
