// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

package account

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/samber/oops"
)

// Notifier delivers email verification messages. Delivery is the notifier's
// concern; the Directory only logs a failed send.
type Notifier interface {
	SendVerification(ctx context.Context, account *Account, token string) error
}

// LogNotifier writes the verification link to a logger instead of sending mail.
// Useful for development and for deployments where an external worker tails
// the log stream.
type LogNotifier struct {
	logger    *slog.Logger
	verifyURL string
}

// NewLogNotifier creates a LogNotifier. verifyURL is the base of the
// verification link; the account id and token are appended as query parameters.
func NewLogNotifier(logger *slog.Logger, verifyURL string) (*LogNotifier, error) {
	if logger == nil {
		return nil, oops.Code("NOTIFIER_INVALID").Errorf("logger is required")
	}
	if _, err := url.Parse(verifyURL); err != nil {
		return nil, oops.Code("NOTIFIER_INVALID").With("verify_url", verifyURL).Wrap(err)
	}
	return &LogNotifier{logger: logger, verifyURL: verifyURL}, nil
}

// SendVerification logs the verification link for the account.
func (n *LogNotifier) SendVerification(ctx context.Context, account *Account, token string) error {
	link, err := VerificationLink(n.verifyURL, account, token)
	if err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "verification email",
		"event", "verification_email",
		"account_id", account.ID.String(),
		"recipient", account.Email,
		"link", link,
	)
	return nil
}

// VerificationLink builds the link a user follows to verify their email.
func VerificationLink(base string, account *Account, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", oops.Code("NOTIFIER_INVALID").With("verify_url", base).Wrap(err)
	}
	q := u.Query()
	q.Set("account", account.ID.String())
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
